package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "tiltguard/internal/errors"
	"tiltguard/internal/models"
	"tiltguard/pkg/utils"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trader profiles
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		experience_level TEXT NOT NULL DEFAULT 'BEGINNER',
		planned_daily_limit INTEGER NOT NULL DEFAULT 3,
		trading_plan_rules TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Closed trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		direction TEXT NOT NULL,
		risk_percentage REAL NOT NULL,
		result TEXT NOT NULL,
		pnl REAL NOT NULL,
		followed_plan INTEGER NOT NULL DEFAULT 1,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		mood TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Reflective journal
	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		emotional_state TEXT NOT NULL,
		confidence_level INTEGER NOT NULL,
		discipline_score INTEGER NOT NULL,
		revenge_risk INTEGER NOT NULL,
		session_type TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_entry ON trades(user_id, entry_time DESC);
	CREATE INDEX IF NOT EXISTS idx_journal_user_ts ON journal(user_id, timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// constraintError maps SQLite constraint violations onto domain errors.
func constraintError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", apperrors.ErrDuplicate, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %v", apperrors.ErrUserNotFound, err)
	}
	return err
}

// ============================================================================
// Users Methods
// ============================================================================

// CreateUser saves a new user. An empty ID is replaced with a fresh ULID.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = utils.NewID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.TradingPlanRules == nil {
		user.TradingPlanRules = []string{}
	}

	rules, err := json.Marshal(user.TradingPlanRules)
	if err != nil {
		return apperrors.NewStoreError("create", "user", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, experience_level, planned_daily_limit, trading_plan_rules, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.ExperienceLevel, user.PlannedDailyLimit, string(rules), user.CreatedAt.UTC(), user.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreError("create", "user", constraintError(err))
	}
	return nil
}

const userColumns = "id, username, email, experience_level, planned_daily_limit, trading_plan_rules, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var rulesJSON string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.ExperienceLevel, &u.PlannedDailyLimit, &rulesJSON, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rulesJSON), &u.TradingPlanRules); err != nil {
		return nil, fmt.Errorf("decoding trading plan rules: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrUserNotFound, "user %s", id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get", "user", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, apperrors.NewStoreError("list", "users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan", "user", err)
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

// UpdateStrategy updates a user's planned daily limit and, when rules is
// non-nil, their trading plan rules.
func (s *SQLiteStore) UpdateStrategy(ctx context.Context, id string, plannedDailyLimit int, rules []string) (*models.User, error) {
	query := "UPDATE users SET planned_daily_limit = ?, updated_at = ?"
	args := []interface{}{plannedDailyLimit, time.Now().UTC()}

	if rules != nil {
		rulesJSON, err := json.Marshal(rules)
		if err != nil {
			return nil, apperrors.NewStoreError("update", "user", err)
		}
		query += ", trading_plan_rules = ?"
		args = append(args, string(rulesJSON))
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("update", "user", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrUserNotFound, "user %s", id)
	}

	return s.GetUser(ctx, id)
}

// ============================================================================
// Trades Methods
// ============================================================================

// LogTrade saves a closed trade. An empty ID is replaced with a fresh ULID.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.TradeRecord) error {
	if trade.ID == "" {
		trade.ID = utils.NewID()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}
	followed := 0
	if trade.FollowedPlan {
		followed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, user_id, instrument, direction, risk_percentage, result, pnl, followed_plan, entry_time, exit_time, mood, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.UserID, trade.Instrument, trade.Direction, trade.RiskPercentage, trade.Result, trade.PnL, followed, trade.EntryTime.UTC(), trade.ExitTime.UTC(), trade.Mood, trade.CreatedAt.UTC())
	if err != nil {
		return apperrors.NewStoreError("log", "trade", constraintError(err))
	}
	return nil
}

const tradeColumns = "id, user_id, instrument, direction, risk_percentage, result, pnl, followed_plan, entry_time, exit_time, mood, created_at"

func scanTrade(row rowScanner) (*models.TradeRecord, error) {
	var t models.TradeRecord
	var followed int
	if err := row.Scan(&t.ID, &t.UserID, &t.Instrument, &t.Direction, &t.RiskPercentage, &t.Result, &t.PnL, &followed, &t.EntryTime, &t.ExitTime, &t.Mood, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.FollowedPlan = followed == 1
	return &t, nil
}

// GetTrade retrieves a trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.TradeRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrTradeNotFound, "trade %s", id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get", "trade", err)
	}
	return t, nil
}

// GetTrades retrieves trades from the database, most recent entry first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Instrument != "" {
		query += " AND instrument = ?"
		args = append(args, filter.Instrument)
	}
	if !filter.StartDate.IsZero() {
		query += " AND entry_time >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND entry_time <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY entry_time DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query", "trades", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan", "trade", err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

// DeleteTrade removes a trade.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return apperrors.NewStoreError("delete", "trade", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.Wrapf(apperrors.ErrTradeNotFound, "trade %s", id)
	}
	return nil
}

// TradingUserIDs returns the IDs of users with at least one trade.
func (s *SQLiteStore) TradingUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM trades ORDER BY user_id")
	if err != nil {
		return nil, apperrors.NewStoreError("query", "trade users", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewStoreError("scan", "trade user", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ============================================================================
// Journal Methods
// ============================================================================

// SaveJournalEntry saves a journal entry. An empty ID is replaced with a
// fresh ULID.
func (s *SQLiteStore) SaveJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = utils.NewID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO journal (id, user_id, emotional_state, confidence_level, discipline_score, revenge_risk, session_type, notes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.EmotionalState, entry.ConfidenceLevel, entry.DisciplineScoreAtEntry, entry.RevengeRiskAtEntry, entry.SessionType, entry.Notes, entry.Timestamp.UTC())
	if err != nil {
		return apperrors.NewStoreError("save", "journal entry", constraintError(err))
	}
	return nil
}

// GetJournal retrieves journal entries, newest first.
func (s *SQLiteStore) GetJournal(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error) {
	query := "SELECT id, user_id, emotional_state, confidence_level, discipline_score, revenge_risk, session_type, notes, timestamp FROM journal WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.SessionType != "" {
		query += " AND session_type = ?"
		args = append(args, filter.SessionType)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query", "journal", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EmotionalState, &e.ConfidenceLevel, &e.DisciplineScoreAtEntry, &e.RevengeRiskAtEntry, &e.SessionType, &e.Notes, &e.Timestamp); err != nil {
			return nil, apperrors.NewStoreError("scan", "journal entry", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
