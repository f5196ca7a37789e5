package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"tiltguard/internal/models"
)

// tradeRow is one trade in an import file.
type tradeRow struct {
	Instrument     string  `csv:"instrument" json:"instrument"`
	Direction      string  `csv:"direction" json:"direction"`
	RiskPercentage float64 `csv:"risk_percentage" json:"riskPercentage"`
	Result         string  `csv:"result" json:"result"`
	PnL            float64 `csv:"pnl" json:"pnl"`
	FollowedPlan   bool    `csv:"followed_plan" json:"followedPlan"`
	EntryTime      string  `csv:"entry_time" json:"entryTime"`
	ExitTime       string  `csv:"exit_time" json:"exitTime"`
	Mood           string  `csv:"mood" json:"mood"`
}

// ParseTrades reads trades in the given format ("csv" or "json"). Rows are
// converted but not validated beyond what conversion needs.
func ParseTrades(r io.Reader, format string) ([]models.TradeRecord, error) {
	var rows []*tradeRow

	switch strings.ToLower(format) {
	case "csv":
		if err := gocsv.Unmarshal(r, &rows); err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("reading json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported import format %q (use csv or json)", format)
	}

	trades := make([]models.TradeRecord, 0, len(rows))
	for i, row := range rows {
		t, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (row *tradeRow) record() (models.TradeRecord, error) {
	entry, err := time.Parse(time.RFC3339, strings.TrimSpace(row.EntryTime))
	if err != nil {
		return models.TradeRecord{}, fmt.Errorf("entry_time: %w", err)
	}
	exit, err := time.Parse(time.RFC3339, strings.TrimSpace(row.ExitTime))
	if err != nil {
		return models.TradeRecord{}, fmt.Errorf("exit_time: %w", err)
	}

	direction, ok := models.ParseDirection(row.Direction)
	if !ok {
		return models.TradeRecord{}, fmt.Errorf("direction: unknown value %q", row.Direction)
	}

	mood, ok := models.ParseMood(row.Mood)
	if !ok {
		return models.TradeRecord{}, fmt.Errorf("mood: unknown value %q", row.Mood)
	}

	var result models.TradeResult
	if strings.TrimSpace(row.Result) != "" {
		if result, ok = models.ParseResult(row.Result); !ok {
			return models.TradeRecord{}, fmt.Errorf("result: unknown value %q", row.Result)
		}
	}

	return models.TradeRecord{
		Instrument:     strings.ToUpper(strings.TrimSpace(row.Instrument)),
		Direction:      direction,
		RiskPercentage: row.RiskPercentage,
		Result:         result,
		PnL:            row.PnL,
		FollowedPlan:   row.FollowedPlan,
		EntryTime:      entry,
		ExitTime:       exit,
		Mood:           mood,
	}, nil
}
