package aggregate

import (
	"context"
	"database/sql"
	"time"
)

func (t *Tx) Context() context.Context {
	return t.ctx
}

// Now is fixed for the duration of one attempt.
func (t *Tx) Now() time.Time {
	return t.now
}

// Exec runs a write statement and marks the match as modified.
func (t *Tx) Exec(query string, args ...any) (sql.Result, error) {
	t.wrote = true
	return t.tx.ExecContext(t.ctx, query, args...)
}

func (t *Tx) Query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

func (t *Tx) QueryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

// AfterCommit registers f to run once the transaction has committed. Nothing
// registered by a failed or retried attempt ever runs.
func (t *Tx) AfterCommit(f func()) {
	t.afterCommit = append(t.afterCommit, f)
}
