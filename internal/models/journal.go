package models

import "time"

// EmotionalState is the state a trader records in a reflective journal entry.
type EmotionalState string

const (
	EmotionCalm       EmotionalState = "CALM"
	EmotionConfident  EmotionalState = "CONFIDENT"
	EmotionAnxious    EmotionalState = "ANXIOUS"
	EmotionFrustrated EmotionalState = "FRUSTRATED"
	EmotionImpulsive  EmotionalState = "IMPULSIVE"
	EmotionFocused    EmotionalState = "FOCUSED"
)

// SessionType is the part of the trading day a journal entry refers to.
type SessionType string

const (
	SessionPreMarket  SessionType = "PRE-MARKET"
	SessionInTrade    SessionType = "IN-TRADE"
	SessionPostMarket SessionType = "POST-MARKET"
	SessionBreak      SessionType = "BREAK"
)

// JournalEntry represents a reflective journal entry. The metric snapshots
// capture the trader's behavioral state when the entry was written.
type JournalEntry struct {
	ID                     string         `json:"id"`
	UserID                 string         `json:"userId"`
	EmotionalState         EmotionalState `json:"emotionalState"`
	ConfidenceLevel        int            `json:"confidenceLevel"`
	DisciplineScoreAtEntry int            `json:"disciplineScoreAtEntry"`
	RevengeRiskAtEntry     int            `json:"revengeRiskAtEntry"`
	SessionType            SessionType    `json:"sessionType"`
	Notes                  string         `json:"notes,omitempty"`
	Timestamp              time.Time      `json:"timestamp"`
}
