package repository

import (
	"context"
	"fmt"
)

// Both dialects accept this DDL. Timestamps are RFC 3339 UTC text and IDs
// are UUID text, so rows scan the same way everywhere.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS proposal (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		source_path   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		confidence    TEXT NOT NULL,
		detected_date TEXT,
		payload       TEXT NOT NULL,
		reason        TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		decided_at    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_proposal_status ON proposal(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS confirmed_lab_value (
		id           TEXT PRIMARY KEY,
		proposal_id  TEXT NOT NULL REFERENCES proposal(id),
		field_key    TEXT NOT NULL,
		display_name TEXT NOT NULL,
		value        DOUBLE PRECISION NOT NULL,
		unit         TEXT,
		collected_on TEXT NOT NULL,
		source_line  TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lab_value_field ON confirmed_lab_value(field_key, collected_on)`,
	`CREATE TABLE IF NOT EXISTS confirmed_medication (
		id             TEXT PRIMARY KEY,
		proposal_id    TEXT NOT NULL UNIQUE REFERENCES proposal(id),
		display_name   TEXT NOT NULL,
		strength       TEXT,
		directions     TEXT,
		pharmacy       TEXT,
		pharmacy_phone TEXT,
		rx_number      TEXT,
		ndc            TEXT,
		quantity       INTEGER,
		refills        INTEGER,
		fill_date      TEXT,
		patient_name   TEXT,
		prescriber     TEXT,
		created_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_event (
		id          TEXT PRIMARY KEY,
		proposal_id TEXT NOT NULL REFERENCES proposal(id),
		seq         INTEGER NOT NULL,
		action      TEXT NOT NULL,
		detail      TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_proposal ON audit_event(proposal_id, seq)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
