// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tiltguard/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateStrategy(ctx context.Context, id string, plannedDailyLimit int, rules []string) (*models.User, error)

	// Trades
	LogTrade(ctx context.Context, trade *models.TradeRecord) error
	GetTrade(ctx context.Context, id string) (*models.TradeRecord, error)
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error)
	DeleteTrade(ctx context.Context, id string) error
	TradingUserIDs(ctx context.Context) ([]string, error)

	// Journal
	SaveJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	GetJournal(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
// Results are ordered by entry time, most recent first.
type TradeFilter struct {
	UserID     string
	Instrument string
	StartDate  time.Time
	EndDate    time.Time
	Limit      int
}

// JournalFilter represents filters for querying journal entries.
type JournalFilter struct {
	UserID      string
	SessionType models.SessionType
	StartDate   time.Time
	EndDate     time.Time
	Limit       int
}
