package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ensureSchema creates the tables and indexes on boot. Every statement is
// idempotent so restarting against an existing database is a no-op.
func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{

		// Events. The id is a 4-digit zero-padded string ("0001"–"9999")
		// issued from the counters table, never reused. participants and
		// participant_names are co-indexed arrays.
		`CREATE TABLE IF NOT EXISTS events (
			id                TEXT PRIMARY KEY,
			creator_id        BIGINT NOT NULL,
			creator_name      TEXT NOT NULL DEFAULT '',
			title             TEXT NOT NULL,
			type              TEXT NOT NULL,
			description       TEXT NOT NULL,
			datetime          TEXT NOT NULL,
			duration          TEXT NOT NULL,
			agenda            JSONB NOT NULL DEFAULT '[]',
			participants      BIGINT[] NOT NULL DEFAULT '{}',
			participant_names TEXT[] NOT NULL DEFAULT '{}',
			status            TEXT NOT NULL DEFAULT 'pending',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS events_creator_idx ON events (creator_id)`,
		`CREATE INDEX IF NOT EXISTS events_participants_idx ON events USING GIN (participants)`,

		// One row per user; saves replace all three preference fields.
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id         BIGINT PRIMARY KEY,
			interests       TEXT[] NOT NULL DEFAULT '{}',
			timezone        TEXT NOT NULL DEFAULT 'UTC+8',
			preferred_times TEXT[] NOT NULL DEFAULT '{}',
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// Named monotonic counters; only "event_id" is in use.
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			seq  BIGINT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("schema error: %w\nstmt: %.80s", err, s)
		}
	}
	return nil
}
