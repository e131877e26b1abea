package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const maxRetries = 3

// IsBusy reports whether err is an SQLite BUSY or locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// retry runs fn up to maxRetries times while it fails with BUSY, backing
// off 100ms, then 200ms.
func retry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	for i := range maxRetries {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsBusy(err) || i == maxRetries-1 {
			return zero, err
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("dbopen: %s: context cancelled during retry: %w", op, ctx.Err())
		case <-t.C:
		}
	}
	return zero, fmt.Errorf("dbopen: %s: max retries exceeded", op)
}

// RunTx runs fn in a transaction, retrying the whole transaction on BUSY.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	_, err := retry(ctx, "tx", func() (struct{}, error) {
		return struct{}{}, runOnce(ctx, db, fn)
	})
	return err
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec runs one statement, retrying on BUSY.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	return retry(ctx, "exec", func() (sql.Result, error) {
		return db.ExecContext(ctx, query, args...)
	})
}
