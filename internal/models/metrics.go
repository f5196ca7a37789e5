package models

// LossReactivity classifies how quickly a trader re-enters after a loss.
type LossReactivity string

const (
	ReactivityStable LossReactivity = "Stable"
	ReactivityHigh   LossReactivity = "High"
)

// Severity represents the severity of a behavioral warning.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// TradingStatus is the consumer-facing status derived from warnings.
type TradingStatus string

const (
	StatusActive TradingStatus = "ACTIVE"
	StatusStop   TradingStatus = "STOP TRADING"
)

// MetricsBundle holds the behavioral metrics computed from a trade log.
type MetricsBundle struct {
	DisciplineScore  int            `json:"disciplineScore"`
	OvertradingIndex float64        `json:"overtradingIndex"`
	DispositionRatio float64        `json:"dispositionRatio"`
	HouseMoneyFactor float64        `json:"houseMoneyFactor"`
	LossReactivity   LossReactivity `json:"lossReactivity"`
	RevengeRisk      int            `json:"revengeRisk"`
	TotalTrades      int            `json:"totalTrades"`
}

// CleanSlate returns the bundle used when a trade log cannot be loaded.
func CleanSlate() MetricsBundle {
	return MetricsBundle{
		DisciplineScore:  100,
		OvertradingIndex: 0,
		DispositionRatio: 1,
		HouseMoneyFactor: 1,
		LossReactivity:   ReactivityStable,
		RevengeRisk:      0,
		TotalTrades:      0,
	}
}

// Warning is a human-readable behavioral risk warning.
type Warning struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report bundles metrics with the warnings they produced.
type Report struct {
	Metrics  MetricsBundle `json:"metrics"`
	Warnings []Warning     `json:"warnings"`
	Status   TradingStatus `json:"status"`
}

// PreTradeCheck reports whether a trader may open another trade today.
type PreTradeCheck struct {
	UserID          string        `json:"userId"`
	TradesToday     int           `json:"tradesToday"`
	DailyLimit      int           `json:"dailyLimit"`
	TradesRemaining int           `json:"tradesRemaining"`
	Status          TradingStatus `json:"status"`
	Allowed         bool          `json:"allowed"`
	Reason          string        `json:"reason,omitempty"`
}
