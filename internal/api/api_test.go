package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tiltguard/internal/behavior"
	"tiltguard/internal/service"
	"tiltguard/internal/store"
	"tiltguard/pkg/telemetry"
)

var clock = time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := service.New(st, behavior.NewDefaultEngine(),
		service.WithClock(func() time.Time { return clock }),
	)
	return NewServer(NewHandler(svc, zerolog.Nop()), opts...)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func createUser(t *testing.T, s *Server, name string) string {
	t.Helper()

	rec, env := do(t, s, http.MethodPost, "/api/users",
		`{"username":"`+name+`","email":"`+name+`@example.com","plannedDailyLimit":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.NotEmpty(t, user.ID)
	return user.ID
}

func tradeBody(userID string, entry time.Time, pnl, risk float64, followed bool) string {
	b, _ := json.Marshal(map[string]interface{}{
		"userId":         userID,
		"instrument":     "XAUUSD",
		"direction":      "long",
		"riskPercentage": risk,
		"pnl":            pnl,
		"followedPlan":   followed,
		"entryTime":      entry.Format(time.RFC3339),
		"exitTime":       entry.Add(30 * time.Minute).Format(time.RFC3339),
	})
	return string(b)
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestServer(t)
	id := createUser(t, s, "sam")

	rec, env := do(t, s, http.MethodGet, "/api/users/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var user struct {
		Username          string   `json:"username"`
		ExperienceLevel   string   `json:"experienceLevel"`
		PlannedDailyLimit int      `json:"plannedDailyLimit"`
		TradingPlanRules  []string `json:"tradingPlanRules"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "sam", user.Username)
	assert.Equal(t, "BEGINNER", user.ExperienceLevel)
	assert.Equal(t, 3, user.PlannedDailyLimit)
	assert.NotEmpty(t, user.TradingPlanRules)

	rec, env = do(t, s, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var users []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 1)
}

func TestCreateUserErrors(t *testing.T) {
	s := newTestServer(t)
	createUser(t, s, "sam")

	rec, env := do(t, s, http.MethodPost, "/api/users", `{"username":"kim","email":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs []FieldError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	assert.Equal(t, "email", errs[0].Field)

	rec, _ = do(t, s, http.MethodPost, "/api/users", `{"username":"sam","email":"sam@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/users", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownUser(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodGet, "/api/users/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)

	rec, _ = do(t, s, http.MethodGet, "/api/metrics/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/trades", tradeBody("missing", clock.Add(-time.Hour), 10, 1, true))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStrategy(t *testing.T) {
	s := newTestServer(t)
	id := createUser(t, s, "sam")

	rec, env := do(t, s, http.MethodPut, "/api/users/"+id+"/strategy", `{"plannedDailyLimit":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user struct {
		PlannedDailyLimit int `json:"plannedDailyLimit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, 5, user.PlannedDailyLimit)

	rec, _ = do(t, s, http.MethodPut, "/api/users/"+id+"/strategy", `{"plannedDailyLimit":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradesAndMetrics(t *testing.T) {
	s := newTestServer(t)
	id := createUser(t, s, "sam")

	rec, _ := do(t, s, http.MethodPost, "/api/trades", tradeBody(id, clock.Add(-6*time.Hour), 50, 1, true))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := do(t, s, http.MethodGet, "/api/metrics/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var report struct {
		Metrics struct {
			DisciplineScore int `json:"disciplineScore"`
			TotalTrades     int `json:"totalTrades"`
		} `json:"metrics"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 100, report.Metrics.DisciplineScore)
	assert.Equal(t, 1, report.Metrics.TotalTrades)
	assert.Equal(t, "ACTIVE", report.Status)

	// Broken plan, excess risk and a loss.
	rec, _ = do(t, s, http.MethodPost, "/api/trades", tradeBody(id, clock.Add(-3*time.Hour), -80, 3, false))
	require.Equal(t, http.StatusCreated, rec.Code)

	_, env = do(t, s, http.MethodGet, "/api/metrics/"+id, "")
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 55, report.Metrics.DisciplineScore)
	assert.Equal(t, "STOP TRADING", report.Status)

	var overtrading struct {
		Metrics struct {
			OvertradingIndex float64 `json:"overtradingIndex"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overtrading))
	assert.Equal(t, 0.67, overtrading.Metrics.OvertradingIndex)

	// A reference instant on another day sees no trades that day.
	at := clock.AddDate(0, 0, -1).Format(time.RFC3339)
	rec, env = do(t, s, http.MethodGet, "/api/metrics/"+id+"?at="+at, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &overtrading))
	assert.Equal(t, 0.0, overtrading.Metrics.OvertradingIndex)

	rec, _ = do(t, s, http.MethodGet, "/api/metrics/"+id+"?at=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, s, http.MethodGet, "/api/trades/user/"+id+"?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []struct {
		ID  string  `json:"id"`
		PnL float64 `json:"pnl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, -80.0, trades[0].PnL, "most recent first")

	rec, _ = do(t, s, http.MethodGet, "/api/trades/user/"+id+"?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodDelete, "/api/trades/"+trades[0].ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, s, http.MethodDelete, "/api/trades/"+trades[0].ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordTradeValidation(t *testing.T) {
	s := newTestServer(t)
	id := createUser(t, s, "sam")

	rec, env := do(t, s, http.MethodPost, "/api/trades", tradeBody(id, clock, 10, 0, true))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errs []FieldError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	assert.Equal(t, "riskPercentage", errs[0].Field)
}

func TestPreTradeAndBatch(t *testing.T) {
	s := newTestServer(t)
	id := createUser(t, s, "sam")
	createUser(t, s, "kim")

	for i := 0; i < 3; i++ {
		rec, _ := do(t, s, http.MethodPost, "/api/trades",
			tradeBody(id, clock.Add(-time.Duration(6-i)*time.Hour), 20, 1, true))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := do(t, s, http.MethodGet, "/api/metrics/"+id+"/pretrade", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var check struct {
		TradesToday int  `json:"tradesToday"`
		Allowed     bool `json:"allowed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.Equal(t, 3, check.TradesToday)
	assert.False(t, check.Allowed)

	rec, env = do(t, s, http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []service.UserReport
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 2)

	rec, env = do(t, s, http.MethodGet, "/api/metrics?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].UserID)
}

func TestJournal(t *testing.T) {
	s := newTestServer(t)
	id := createUser(t, s, "sam")

	rec, env := do(t, s, http.MethodPost, "/api/journal",
		`{"userId":"`+id+`","emotionalState":"CALM","confidenceLevel":7,"notes":"steady"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var entry struct {
		SessionType            string `json:"sessionType"`
		DisciplineScoreAtEntry int    `json:"disciplineScoreAtEntry"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, "POST-MARKET", entry.SessionType)
	// An empty trade log averages to zero.
	assert.Equal(t, 0, entry.DisciplineScoreAtEntry)

	rec, env = do(t, s, http.MethodGet, "/api/journal/user/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Len(t, entries, 1)

	rec, _ = do(t, s, http.MethodPost, "/api/journal", `{"userId":"`+id+`","emotionalState":"BORED","confidenceLevel":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetricsEndpoint(t *testing.T) {
	recorder := telemetry.New()
	s := newTestServer(t, WithRecorder(recorder))

	rec, _ := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), "goroutines")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	out := httptest.NewRecorder()
	s.Echo().ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	assert.Contains(t, out.Body.String(), `tiltguard_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, WithRateLimit(0.001, 1))

	rec, _ := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitBurst(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(rate.NewLimiter(rate.Every(time.Hour), 2)))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRecoverFromPanic(t *testing.T) {
	s := newTestServer(t)
	s.Echo().GET("/boom", func(c echo.Context) error { panic("boom") })

	rec, env := do(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

func TestFailureLogsOperation(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

	req := httptest.NewRequest(http.MethodGet, "/api/users/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"operation":"get_user"`)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"message":"Request failed"`)
}
