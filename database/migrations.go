package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

const createJournalTable = `
	CREATE TABLE IF NOT EXISTS reservation_journal (
		id             SERIAL PRIMARY KEY,
		reservation_no TEXT NOT NULL,
		run_id         TEXT NOT NULL DEFAULT '',
		criterion      INTEGER NOT NULL,
		train_no       TEXT NOT NULL,
		train_type     TEXT NOT NULL,
		dep_station    TEXT NOT NULL,
		arr_station    TEXT NOT NULL,
		dep_date       TEXT NOT NULL,
		dep_time       TEXT NOT NULL,
		arr_time       TEXT NOT NULL,
		seat_class     TEXT NOT NULL,
		passengers     INTEGER NOT NULL,
		reserved_at    TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// RunMigrations ensures the journal table exists
func RunMigrations(ctx context.Context, db *sql.DB) error {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'reservation_journal'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking journal schema: %w", err)
	}

	if exists {
		return nil
	}

	log.Println("Creating reservation_journal table")
	if _, err := db.ExecContext(ctx, createJournalTable); err != nil {
		return fmt.Errorf("error creating journal table: %w", err)
	}
	return nil
}
