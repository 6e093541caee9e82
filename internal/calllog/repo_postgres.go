package calllog

import (
	"context"
	"database/sql"
	"fmt"
)

// execer is the part of *sql.DB the repository needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresRepo appends entries to the call_log table. Rows are insert-only.
type PostgresRepo struct {
	db execer
}

func NewPostgresRepo(db execer) *PostgresRepo { return &PostgresRepo{db: db} }

const createCallLogTable = `
CREATE TABLE IF NOT EXISTS call_log (
	id         UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	caller     TEXT NOT NULL,
	callee     TEXT NOT NULL,
	room       TEXT NOT NULL DEFAULT '',
	call_id    TEXT NOT NULL DEFAULT '',
	outcome    TEXT NOT NULL
)`

const createCallLogIndex = `CREATE INDEX IF NOT EXISTS call_log_created_at_idx ON call_log (created_at)`

const insertCallLog = `
INSERT INTO call_log (id, created_at, caller, callee, room, call_id, outcome)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// EnsureSchema creates the table when missing. Safe to run on every start.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createCallLogTable, createCallLogIndex} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("calllog: ensure schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, insertCallLog,
		e.ID, e.Timestamp, e.Caller, e.Callee, e.Room, e.CallID, string(e.Outcome))
	if err != nil {
		return fmt.Errorf("calllog: insert: %w", err)
	}
	return nil
}
