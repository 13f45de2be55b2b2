package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// lastRunKey is the single info-table row the bot uses. Its presence
// signals that the bot has run before.
const lastRunKey = "lastrun"

// Store defines the interface for persistence operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetLastRun returns the recorded last-run timestamp. The boolean is
	// false when no run has ever been recorded.
	GetLastRun(ctx context.Context) (time.Time, bool, error)

	// RecordRun stores now as the last-run timestamp, inserting the row on
	// the first run and updating it on every subsequent run.
	RecordRun(ctx context.Context, now time.Time) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetLastRun returns the stored last-run timestamp, or false when the row
// is absent. The value is stored as an RFC 3339 string.
func (s *sqlxStore) GetLastRun(ctx context.Context) (time.Time, bool, error) {
	var val sql.NullString
	err := s.db.GetContext(ctx, &val, "SELECT val FROM info WHERE name = ? LIMIT 1", lastRunKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		s.logger.ErrorContext(ctx, "Error querying last run", "error", err)
		return time.Time{}, false, fmt.Errorf("failed to query last run: %w", err)
	}

	if !val.Valid {
		// Row exists but holds no value; still counts as a previous run.
		return time.Time{}, true, nil
	}

	ts, err := time.Parse(time.RFC3339, val.String)
	if err != nil {
		s.logger.WarnContext(ctx, "Stored last run timestamp is malformed", "value", val.String, "error", err)
		return time.Time{}, true, nil
	}
	return ts, true, nil
}

// RecordRun inserts the lastrun row on the first run and updates it
// otherwise. This is a read-then-write sequence with no transactional
// guard; only one bot process writes to the store.
func (s *sqlxStore) RecordRun(ctx context.Context, now time.Time) error {
	_, exists, err := s.GetLastRun(ctx)
	if err != nil {
		return err
	}

	val := now.Format(time.RFC3339)

	if !exists {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO info(name, val) VALUES(?, ?)", lastRunKey, val); err != nil {
			s.logger.ErrorContext(ctx, "Error inserting last run", "error", err)
			return fmt.Errorf("failed to insert last run: %w", err)
		}
		s.logger.DebugContext(ctx, "Recorded first run", "timestamp", val)
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE info SET val = ? WHERE name = ?", val, lastRunKey); err != nil {
		s.logger.ErrorContext(ctx, "Error updating last run", "error", err)
		return fmt.Errorf("failed to update last run: %w", err)
	}
	s.logger.DebugContext(ctx, "Updated last run", "timestamp", val)
	return nil
}
