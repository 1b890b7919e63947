package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// ErrEmptyUserID is returned when a ledger call is not bound to a user.
var ErrEmptyUserID = errors.New("ledger user id is empty")

// InsertLedgerEntry stores an entry for userID. Re-inserting the same id is a
// no-op, so retries never double-count credits.
func (db *DB) InsertLedgerEntry(ctx context.Context, userID string, entry models.LedgerEntry) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	query := `
		INSERT INTO ledger_entries (id, user_id, amount, kind, description, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	_, err := db.ExecContext(ctx, query,
		entry.ID,
		userID,
		entry.Amount,
		string(entry.Kind),
		entry.Description,
		formatTime(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// ListLedgerEntries returns the newest entries of userID first. A limit of
// zero or less returns every entry.
func (db *DB) ListLedgerEntries(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, amount, kind, description, timestamp
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		var kind, ts string

		if err := rows.Scan(&entry.ID, &entry.Amount, &kind, &entry.Description, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entry.Kind = models.LedgerKind(kind)
		entry.Timestamp = parseTime(ts)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
