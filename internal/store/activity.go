package store

import (
	"context"
	"fmt"

	"github.com/erazemk/pisarna/internal/model"
)

// CreateActivity appends an entry to the activity log.
func CreateActivity(ctx context.Context, q DBTX, actorID int64, actorName, action, detail string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO activity_log (actor_id, actor_name, action, detail) VALUES (?, ?, ?, ?)`,
		actorID, actorName, action, detail,
	)
	if err != nil {
		return fmt.Errorf("creating activity entry: %w", err)
	}
	return nil
}

// ListActivity returns the newest activity entries. A limit of zero or less
// returns everything.
func ListActivity(ctx context.Context, q DBTX, limit int) ([]model.ActivityLogEntry, error) {
	query := `SELECT id, actor_id, actor_name, action, detail, created_at
	          FROM activity_log ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLogEntry
	for rows.Next() {
		var e model.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
