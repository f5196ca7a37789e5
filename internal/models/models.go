// Package models provides domain models for the behavioral risk engine.
package models

import "strings"

// Direction represents the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection parses a direction, accepting the buy/sell aliases used by
// order tickets.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return DirectionLong, true
	case "short", "sell":
		return DirectionShort, true
	default:
		return "", false
	}
}

// TradeResult represents the informational outcome of a trade.
type TradeResult string

const (
	ResultWin       TradeResult = "win"
	ResultLoss      TradeResult = "loss"
	ResultBreakeven TradeResult = "breakeven"
)

// ResultFromPnL derives a result from a signed PnL.
func ResultFromPnL(pnl float64) TradeResult {
	switch {
	case pnl > 0:
		return ResultWin
	case pnl < 0:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}

// ParseResult parses a trade result.
func ParseResult(s string) (TradeResult, bool) {
	switch TradeResult(strings.ToLower(strings.TrimSpace(s))) {
	case ResultWin:
		return ResultWin, true
	case ResultLoss:
		return ResultLoss, true
	case ResultBreakeven:
		return ResultBreakeven, true
	default:
		return "", false
	}
}

// Mood is the emotional state recorded alongside a trade.
type Mood string

const (
	MoodNeutral  Mood = "Neutral"
	MoodAnxious  Mood = "Anxious"
	MoodGreedy   Mood = "Greedy"
	MoodAngry    Mood = "Angry"
	MoodEuphoric Mood = "Euphoric"
)

// Moods lists the recognised moods.
var Moods = []Mood{MoodNeutral, MoodAnxious, MoodGreedy, MoodAngry, MoodEuphoric}

// ParseMood parses a mood case-insensitively. The empty string is a valid
// absent mood.
func ParseMood(s string) (Mood, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	for _, m := range Moods {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return "", false
}
