package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// InsertRequestLog records one backend call.
func (db *DB) InsertRequestLog(ctx context.Context, entry *models.RequestLog) error {
	query := `
		INSERT INTO request_log (
			method, route, status_code, duration_ms, error, user_id, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		entry.Method,
		entry.Route,
		entry.StatusCode,
		entry.DurationMs,
		nullString(entry.Error),
		nullString(entry.UserID),
		formatTime(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	return nil
}

// GetRecentRequests returns the newest request log rows first.
func (db *DB) GetRecentRequests(ctx context.Context, limit int) ([]models.RequestLog, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `
		SELECT id, method, route, status_code, duration_ms, error, user_id, timestamp
		FROM request_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var logs []models.RequestLog
	for rows.Next() {
		var entry models.RequestLog
		var errStr, userID sql.NullString
		var ts string

		err := rows.Scan(
			&entry.ID,
			&entry.Method,
			&entry.Route,
			&entry.StatusCode,
			&entry.DurationMs,
			&errStr,
			&userID,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request log: %w", err)
		}

		entry.Error = errStr.String
		entry.UserID = userID.String
		entry.Timestamp = parseTime(ts)
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

// GetRequestStats aggregates the whole request log. Transport failures with
// no status and HTTP statuses of 400 and above count as errors.
func (db *DB) GetRequestStats(ctx context.Context) (*models.RequestStats, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COALESCE(SUM(CASE WHEN status_code >= 400 OR status_code = 0 THEN 1 ELSE 0 END), 0) as error_count,
			COUNT(DISTINCT route) as unique_routes,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM request_log
	`

	var stats models.RequestStats
	err := db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRequests,
		&stats.ErrorCount,
		&stats.UniqueRoutes,
		&stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query request stats: %w", err)
	}

	return &stats, nil
}

// PruneRequestLog keeps only the newest keep rows.
func (db *DB) PruneRequestLog(ctx context.Context, keep int) (int64, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM request_log
		WHERE id NOT IN (
			SELECT id FROM request_log ORDER BY timestamp DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune request log: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
