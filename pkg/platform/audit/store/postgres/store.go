package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"haven/pkg/domain"
	"haven/pkg/platform/audit"
)

// Store persists audit entries to an append-only postgres table. There is
// deliberately no UPDATE or DELETE path; schema migrations may add columns
// but existing rows are immutable.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is applied at startup by the wiring code. BIGSERIAL seq preserves
// append order independent of timestamp resolution.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq        BIGSERIAL PRIMARY KEY,
	id         UUID NOT NULL,
	ts         TIMESTAMPTZ NOT NULL,
	from_mode  TEXT NOT NULL,
	to_mode    TEXT NOT NULL,
	trigger    TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	run_id     TEXT NOT NULL DEFAULT '',
	device     TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT ''
)`

// EnsureSchema creates the journal table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, ts, from_mode, to_mode, trigger, outcome, reason, run_id, device, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.Timestamp, string(entry.FromMode), string(entry.ToMode),
		entry.Trigger, entry.Outcome, entry.Reason, entry.RunID, entry.Device, entry.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, from_mode, to_mode, trigger, outcome, reason, run_id, device, request_id
		FROM audit_entries ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var from, to string
		if err := rows.Scan(&e.ID, &e.Timestamp, &from, &to, &e.Trigger, &e.Outcome, &e.Reason, &e.RunID, &e.Device, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.FromMode = domain.Mode(from)
		e.ToMode = domain.Mode(to)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
