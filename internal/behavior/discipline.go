package behavior

import (
	"math"

	"tiltguard/internal/models"
)

// Engine computes behavioral metrics and warnings.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// NewDefaultEngine creates an engine with the standard thresholds.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultThresholds())
}

// Thresholds returns the engine's thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// ScoreTrade scores one trade's rule adherence from 0 to 100. Penalties are
// subtracted independently and the result is floored at 0.
func (e *Engine) ScoreTrade(trade models.TradeRecord) int {
	score := 100

	if !trade.FollowedPlan {
		score -= e.thresholds.BrokenPlanPenalty
	}
	if riskOf(trade) > e.thresholds.MaxRiskPercent {
		score -= e.thresholds.ExcessRiskPenalty
	}
	// A broken plan that also lost money compounds the penalty.
	if !trade.FollowedPlan && trade.PnL < 0 {
		score -= e.thresholds.BrokenPlanLossPenalty
	}

	return clampScore(score)
}

// AverageDiscipline returns the mean per-trade score rounded to the nearest
// integer, or 0 for an empty log.
func (e *Engine) AverageDiscipline(trades []models.TradeRecord) int {
	if len(trades) == 0 {
		return 0
	}

	total := 0
	for _, t := range trades {
		total += e.ScoreTrade(t)
	}

	return clampScore(int(math.Round(float64(total) / float64(len(trades)))))
}

// riskOf returns the trade's risk with negative and NaN values clamped to 0.
func riskOf(t models.TradeRecord) float64 {
	if math.IsNaN(t.RiskPercentage) || t.RiskPercentage < 0 {
		return 0
	}
	return t.RiskPercentage
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
