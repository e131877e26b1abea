package noticestate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/noticepanel/dbopen"
)

// DismissedStore keeps the set of dismissed notice ids per user.
type DismissedStore struct {
	db *sql.DB
}

// NewDismissedStore wraps db. The schema must already exist.
func NewDismissedStore(db *sql.DB) *DismissedStore {
	return &DismissedStore{db: db}
}

// Set adds ids to, or removes them from, the user's dismissed set in one
// transaction. Adding an id twice keeps the first timestamp.
func (s *DismissedStore) Set(ctx context.Context, userID string, ids []string, dismissed bool) error {
	if userID == "" {
		return fmt.Errorf("noticestate: set dismissed: empty user")
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		q := `DELETE FROM dismissed_notices WHERE user_id = ? AND notice_id = ?`
		if dismissed {
			q = `INSERT INTO dismissed_notices (user_id, notice_id, dismissed_at) VALUES (?, ?, ?)
				ON CONFLICT (user_id, notice_id) DO NOTHING`
		}
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("noticestate: prepare: %w", err)
		}
		defer stmt.Close()
		for _, id := range ids {
			args := []any{userID, id}
			if dismissed {
				args = append(args, now)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("noticestate: set dismissed %s: %w", id, err)
			}
		}
		return nil
	})
}

// List returns the user's dismissed ids, oldest first.
func (s *DismissedStore) List(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notice_id FROM dismissed_notices WHERE user_id = ? ORDER BY dismissed_at, notice_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("noticestate: list dismissed: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("noticestate: scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
