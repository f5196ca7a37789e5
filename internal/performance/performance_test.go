package performance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tiltguard/internal/behavior"
	"tiltguard/internal/models"
)

// BenchmarkWorkerPool benchmarks the worker pool performance.
func BenchmarkWorkerPool(b *testing.B) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		pool.Submit(func() {
			time.Sleep(time.Microsecond)
			wg.Done()
		})
		wg.Wait()
	}
}

// BenchmarkConcurrentUserMetrics compares sequential and pooled metric
// computation across many users.
func BenchmarkConcurrentUserMetrics(b *testing.B) {
	histories := make([][]models.TradeRecord, 50)
	for i := range histories {
		histories[i] = generateTestTrades(200)
	}

	engine := behavior.NewDefaultEngine()
	cfg := models.DefaultUserConfig()
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	ctx := context.Background()

	b.Run("Sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			for _, h := range histories {
				engine.ComputeMetricsAndWarnings(h, cfg, now)
			}
		}
	})

	b.Run("WorkerPool", func(b *testing.B) {
		pool := NewWorkerPool(4)
		pool.Start()
		defer pool.Stop()

		for i := 0; i < b.N; i++ {
			Map(ctx, pool, histories, func(_ context.Context, h []models.TradeRecord) models.Report {
				return engine.ComputeMetricsAndWarnings(h, cfg, now)
			})
		}
	})
}

// generateTestTrades generates an alternating win/loss history.
func generateTestTrades(count int) []models.TradeRecord {
	trades := make([]models.TradeRecord, count)
	baseTime := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).Add(-time.Duration(count) * time.Hour)

	for i := 0; i < count; i++ {
		pnl := float64(i%7) - 3
		entry := baseTime.Add(time.Duration(i) * time.Hour)
		trades[i] = models.TradeRecord{
			Instrument:     "EUR/USD",
			Direction:      models.DirectionLong,
			RiskPercentage: 0.5 + float64(i%5)*0.5,
			Result:         models.ResultFromPnL(pnl),
			PnL:            pnl,
			FollowedPlan:   i%4 != 0,
			EntryTime:      entry,
			ExitTime:       entry.Add(time.Duration(5+i%40) * time.Minute),
		}
	}

	return trades
}

// TestWorkerPoolFunctionality tests worker pool basic functionality.
func TestWorkerPoolFunctionality(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		submitted := pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		})
		if !submitted {
			wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for tasks to complete")
	}

	pool.Stop()

	if counter < 90 {
		t.Errorf("Expected at least 90 tasks completed, got %d", counter)
	}

	if pool.Submit(func() {}) {
		t.Error("Expected Submit to fail on a stopped pool")
	}

	stats := pool.Stats()
	t.Logf("Pool stats: TasksTotal=%d, TasksDone=%d", stats.TasksTotal, stats.TasksDone)
}

// TestMapPreservesOrder tests that Map returns results in input order.
func TestMapPreservesOrder(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Stop()

	items := make([]int, 500)
	for i := range items {
		items[i] = i
	}

	results := Map(context.Background(), pool, items, func(_ context.Context, n int) int {
		return n * n
	})

	if len(results) != len(items) {
		t.Fatalf("Expected %d results, got %d", len(items), len(results))
	}
	for i, r := range results {
		if r != i*i {
			t.Fatalf("Result %d: expected %d, got %d", i, i*i, r)
		}
	}
}

// TestMapWithoutPool tests that Map runs inline when no pool is available.
func TestMapWithoutPool(t *testing.T) {
	results := Map(context.Background(), nil, []string{"a", "bb", "ccc"}, func(_ context.Context, s string) int {
		return len(s)
	})

	want := []int{1, 2, 3}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("Result %d: expected %d, got %d", i, want[i], results[i])
		}
	}
}

// TestMapCancelled tests that a cancelled context skips remaining items.
func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	results := Map(ctx, nil, []int{1, 2, 3}, func(_ context.Context, n int) int {
		atomic.AddInt64(&calls, 1)
		return n
	})

	if calls != 0 {
		t.Errorf("Expected no calls after cancellation, got %d", calls)
	}
	if len(results) != 3 || results[0] != 0 {
		t.Errorf("Expected zero-valued results, got %v", results)
	}
}

// TestRuntimeStats tests runtime stats retrieval.
func TestRuntimeStats(t *testing.T) {
	stats := RuntimeStats()

	if stats.HeapAlloc == 0 {
		t.Error("Expected non-zero HeapAlloc")
	}

	if stats.Goroutines == 0 {
		t.Error("Expected non-zero Goroutines")
	}
}
