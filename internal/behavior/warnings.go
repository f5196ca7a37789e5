package behavior

import "tiltguard/internal/models"

// Warning types.
const (
	WarningLowDiscipline  = "Low Discipline"
	WarningOvertrading    = "Overtrading"
	WarningDisposition    = "Disposition Effect"
	WarningHouseMoney     = "House Money Effect"
	WarningLossReactivity = "Loss Reactivity"
	WarningStable         = "Stable"
)

// Warning messages.
const (
	MessageLowDiscipline  = "Low discipline score — frequent rule violations may be affecting performance."
	MessageOvertrading    = "Overtrading — trade frequency exceeds planned limits."
	MessageDisposition    = "Disposition effect — losing trades held longer than winners."
	MessageHouseMoney     = "House-money effect — risk increased after a win."
	MessageLossReactivity = "High loss reactivity — re-entry too soon after a loss."
	MessageStable         = "No significant behavioral risks detected."
)

// GenerateWarnings evaluates each warning rule independently, in a fixed
// order. When no rule fires a single low-severity stable notice is returned,
// so the result is never empty.
func (e *Engine) GenerateWarnings(m models.MetricsBundle) []models.Warning {
	t := e.thresholds
	var warnings []models.Warning

	if m.DisciplineScore < t.MinDisciplineScore {
		warnings = append(warnings, models.Warning{
			Type:     WarningLowDiscipline,
			Severity: models.SeverityHigh,
			Message:  MessageLowDiscipline,
		})
	}

	if m.OvertradingIndex > t.MaxOvertradingIndex {
		warnings = append(warnings, models.Warning{
			Type:     WarningOvertrading,
			Severity: models.SeverityHigh,
			Message:  MessageOvertrading,
		})
	}

	if m.DispositionRatio > t.MaxDispositionRatio {
		warnings = append(warnings, models.Warning{
			Type:     WarningDisposition,
			Severity: models.SeverityMedium,
			Message:  MessageDisposition,
		})
	}

	if m.HouseMoneyFactor > t.MaxHouseMoneyFactor {
		warnings = append(warnings, models.Warning{
			Type:     WarningHouseMoney,
			Severity: models.SeverityMedium,
			Message:  MessageHouseMoney,
		})
	}

	if m.LossReactivity == models.ReactivityHigh {
		warnings = append(warnings, models.Warning{
			Type:     WarningLossReactivity,
			Severity: models.SeverityHigh,
			Message:  MessageLossReactivity,
		})
	}

	if len(warnings) == 0 {
		warnings = append(warnings, StableWarning())
	}

	return warnings
}

// StableWarning returns the notice used when no behavioral risk is detected.
func StableWarning() models.Warning {
	return models.Warning{
		Type:     WarningStable,
		Severity: models.SeverityLow,
		Message:  MessageStable,
	}
}

// DeriveStatus maps warnings to a trading status: any high-severity warning
// means the trader should stop, otherwise trading stays active. The engine
// never acts on the status; consumers use it to gate new trades.
func DeriveStatus(warnings []models.Warning) models.TradingStatus {
	for _, w := range warnings {
		if w.Severity == models.SeverityHigh {
			return models.StatusStop
		}
	}
	return models.StatusActive
}
