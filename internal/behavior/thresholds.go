// Package behavior computes behavioral risk metrics from a trader's log and
// turns them into severity-tagged warnings.
//
// Every function in this package is a pure function of its arguments. The
// Engine holds only immutable thresholds, so one Engine may serve any number
// of goroutines without locking.
package behavior

import (
	"fmt"
	"time"
)

// Thresholds holds the tunable constants of the scoring rules.
type Thresholds struct {
	// Per-trade discipline penalties.
	MaxRiskPercent        float64
	BrokenPlanPenalty     int
	ExcessRiskPenalty     int
	BrokenPlanLossPenalty int

	// Warning triggers.
	MinDisciplineScore  int
	MaxOvertradingIndex float64
	MaxDispositionRatio float64
	MaxHouseMoneyFactor float64

	// Loss reactivity and revenge risk.
	ReentryWindow   time.Duration
	RapidFireWindow time.Duration
	RevengeWindow   int
	LossHeat        int
	RapidFireFactor int
	WinCooling      int
}

// DefaultThresholds returns the standard rule constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxRiskPercent:        2,
		BrokenPlanPenalty:     40,
		ExcessRiskPenalty:     30,
		BrokenPlanLossPenalty: 20,

		MinDisciplineScore:  70,
		MaxOvertradingIndex: 1.2,
		MaxDispositionRatio: 1.5,
		MaxHouseMoneyFactor: 1.3,

		ReentryWindow:   10 * time.Minute,
		RapidFireWindow: 15 * time.Minute,
		RevengeWindow:   5,
		LossHeat:        20,
		RapidFireFactor: 2,
		WinCooling:      10,
	}
}

// Validate checks that the thresholds describe a usable rule set.
func (t Thresholds) Validate() error {
	switch {
	case t.MaxRiskPercent <= 0:
		return fmt.Errorf("max risk percent must be positive, got %v", t.MaxRiskPercent)
	case t.BrokenPlanPenalty < 0 || t.ExcessRiskPenalty < 0 || t.BrokenPlanLossPenalty < 0:
		return fmt.Errorf("discipline penalties must be non-negative")
	case t.MinDisciplineScore < 0 || t.MinDisciplineScore > 100:
		return fmt.Errorf("min discipline score must be between 0 and 100, got %d", t.MinDisciplineScore)
	case t.MaxOvertradingIndex <= 0 || t.MaxDispositionRatio <= 0 || t.MaxHouseMoneyFactor <= 0:
		return fmt.Errorf("warning ratios must be positive")
	case t.ReentryWindow <= 0 || t.RapidFireWindow <= 0:
		return fmt.Errorf("reaction windows must be positive")
	case t.RevengeWindow < 1:
		return fmt.Errorf("revenge window must hold at least one trade, got %d", t.RevengeWindow)
	case t.LossHeat < 0 || t.WinCooling < 0 || t.RapidFireFactor < 1:
		return fmt.Errorf("revenge heat parameters out of range")
	}
	return nil
}
