package behavior

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"tiltguard/internal/models"
)

// neutralRatio is returned by ratio metrics that lack enough data to be
// defined. It reads as "no effect" rather than as zero.
const neutralRatio = 1.0

// Metrics computes the full metrics bundle for a trade log. now is the
// reference instant that defines "today" for the overtrading index.
func (e *Engine) Metrics(trades []models.TradeRecord, cfg models.UserConfig, now time.Time) models.MetricsBundle {
	return models.MetricsBundle{
		DisciplineScore:  e.AverageDiscipline(trades),
		OvertradingIndex: e.OvertradingIndex(trades, cfg.PlannedDailyLimit, now),
		DispositionRatio: e.DispositionRatio(trades),
		HouseMoneyFactor: e.HouseMoneyFactor(trades),
		LossReactivity:   e.LossReactivity(trades),
		RevengeRisk:      e.RevengeRisk(trades),
		TotalTrades:      len(trades),
	}
}

// TradesOnDay counts the trades whose entry falls on the calendar day of now,
// in now's location.
func TradesOnDay(trades []models.TradeRecord, now time.Time) int {
	loc := now.Location()
	y, m, d := now.Date()

	count := 0
	for _, t := range trades {
		ty, tm, td := t.EntryTime.In(loc).Date()
		if ty == y && tm == m && td == d {
			count++
		}
	}
	return count
}

// OvertradingIndex returns today's trade count divided by the planned daily
// limit, rounded to 2 decimals. A non-positive limit yields 0.
func (e *Engine) OvertradingIndex(trades []models.TradeRecord, plannedDailyLimit int, now time.Time) float64 {
	if plannedDailyLimit <= 0 {
		return 0
	}
	return round2(float64(TradesOnDay(trades, now)) / float64(plannedDailyLimit))
}

// DispositionRatio returns the mean holding time of losers over the mean
// holding time of winners, rounded to 2 decimals. Breakeven trades belong to
// neither side. If either side is empty the ratio is undefined and 1.0 is
// returned.
func (e *Engine) DispositionRatio(trades []models.TradeRecord) float64 {
	var winHold, lossHold time.Duration
	var winners, losers int

	for _, t := range trades {
		switch {
		case t.IsWinner():
			winHold += t.HoldDuration()
			winners++
		case t.IsLoser():
			lossHold += t.HoldDuration()
			losers++
		}
	}

	if winners == 0 || losers == 0 {
		return neutralRatio
	}

	avgWin := winHold.Seconds() / float64(winners)
	avgLoss := lossHold.Seconds() / float64(losers)
	if avgWin <= 0 {
		return neutralRatio
	}
	if avgLoss < 0 {
		avgLoss = 0
	}

	return round2(avgLoss / avgWin)
}

// HouseMoneyFactor compares the risk of the most recent trade to the trade
// before it when that earlier trade was a win. Anything else yields 1.0.
func (e *Engine) HouseMoneyFactor(trades []models.TradeRecord) float64 {
	if len(trades) < 2 {
		return neutralRatio
	}

	sorted := sortedByEntryDesc(trades)
	last := sorted[0]
	previous := sorted[1]

	if previous.Result != models.ResultWin {
		return neutralRatio
	}

	prevRisk := riskOf(previous)
	if prevRisk <= 0 {
		return neutralRatio
	}

	return round2(riskOf(last) / prevRisk)
}

// LossReactivity flags a re-entry within the re-entry window of a losing
// trade's exit.
func (e *Engine) LossReactivity(trades []models.TradeRecord) models.LossReactivity {
	if len(trades) < 2 {
		return models.ReactivityStable
	}

	sorted := sortedByEntry(trades)
	prev := sorted[len(sorted)-2]
	last := sorted[len(sorted)-1]

	if prev.Result == models.ResultLoss && last.EntryTime.Sub(prev.ExitTime) < e.thresholds.ReentryWindow {
		return models.ReactivityHigh
	}

	return models.ReactivityStable
}

// RevengeRisk accumulates tilt over the most recent trades. Each loss adds
// heat, doubled when it was entered within the rapid-fire window of the
// trade before it; each win cools the score. The result is clamped to
// [0, 100].
func (e *Engine) RevengeRisk(trades []models.TradeRecord) int {
	if len(trades) < 2 {
		return 0
	}

	window := sortedByEntry(trades)
	if n := e.thresholds.RevengeWindow; len(window) > n {
		window = window[len(window)-n:]
	}

	risk := 0
	for i, t := range window {
		switch {
		case t.PnL < 0:
			heat := e.thresholds.LossHeat
			if i > 0 && t.EntryTime.Sub(window[i-1].EntryTime) < e.thresholds.RapidFireWindow {
				heat *= e.thresholds.RapidFireFactor
			}
			risk += heat
		case t.PnL > 0:
			risk -= e.thresholds.WinCooling
		}
	}

	return clampScore(risk)
}

// sortedByEntry returns a copy of trades in ascending entry order. Trades
// entered at the same instant keep their input order.
func sortedByEntry(trades []models.TradeRecord) []models.TradeRecord {
	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b models.TradeRecord) int {
		return a.EntryTime.Compare(b.EntryTime)
	})
	return sorted
}

// sortedByEntryDesc returns a copy of trades, most recent entry first. Trades
// entered at the same instant keep their input order.
func sortedByEntryDesc(trades []models.TradeRecord) []models.TradeRecord {
	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b models.TradeRecord) int {
		return b.EntryTime.Compare(a.EntryTime)
	})
	return sorted
}

// round2 rounds half away from zero to 2 decimal places. Non-finite input
// yields 0.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
