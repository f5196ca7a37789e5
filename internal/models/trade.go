package models

import "time"

// TradeRecord represents a closed trade in a trader's log.
type TradeRecord struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId,omitempty"`
	Instrument     string      `json:"instrument"`
	Direction      Direction   `json:"direction"`
	RiskPercentage float64     `json:"riskPercentage"`
	Result         TradeResult `json:"result"`
	PnL            float64     `json:"pnl"`
	FollowedPlan   bool        `json:"followedPlan"`
	EntryTime      time.Time   `json:"entryTime"`
	ExitTime       time.Time   `json:"exitTime"`
	Mood           Mood        `json:"mood,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty"`
}

// HoldDuration returns the elapsed time between entry and exit.
func (t TradeRecord) HoldDuration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// IsWinner reports whether the trade closed with a profit.
func (t TradeRecord) IsWinner() bool {
	return t.PnL > 0
}

// IsLoser reports whether the trade closed with a loss.
func (t TradeRecord) IsLoser() bool {
	return t.PnL < 0
}
