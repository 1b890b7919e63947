package db

import (
	"context"
	"fmt"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

// migrate brings an existing database up to schemaVersion. Every step must be
// safe to run on a database created by createSchema.
func (db *DB) migrate() error {
	var current int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	steps := map[int][]string{
		1: {
			// Early builds stored second-precision timestamps.
			`UPDATE ledger_entries SET timestamp = timestamp || '.000' WHERE length(timestamp) = 19`,
			`UPDATE request_log SET timestamp = timestamp || '.000' WHERE length(timestamp) = 19`,
		},
	}

	for v := current + 1; v <= schemaVersion; v++ {
		for _, query := range steps[v] {
			if _, err := db.ExecContext(context.Background(), query); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", v, err)
			}
		}
	}

	if current < schemaVersion {
		if _, err := db.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}

	return nil
}
