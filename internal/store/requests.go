package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/pisarna/internal/model"
)

const requestSelect = `SELECT r.id, r.requester_id, r.item_id, r.quantity, r.status, r.note,
        r.created_at, r.processed_at, r.processed_by,
        COALESCE(u.name, 'Unknown User') AS requester_name,
        COALESCE(i.name, 'Unknown Item') AS item_name
 FROM requests r
 LEFT JOIN users u ON u.id = r.requester_id
 LEFT JOIN items i ON i.id = r.item_id`

// CreateRequest inserts a pending request.
func CreateRequest(ctx context.Context, q DBTX, requesterID, itemID int64, quantity int, note string) (*model.Request, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO requests (requester_id, item_id, quantity, status, note) VALUES (?, ?, ?, ?, ?)`,
		requesterID, itemID, quantity, model.RequestPending, note,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	return GetRequest(ctx, q, id)
}

// GetRequest returns a request by ID with requester and item names joined.
func GetRequest(ctx context.Context, q DBTX, id int64) (*model.Request, error) {
	rows, err := q.QueryContext(ctx, requestSelect+` WHERE r.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	defer rows.Close()

	reqs, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// ListRequests returns requests matching filter, newest first.
func ListRequests(ctx context.Context, q DBTX, filter model.RequestFilter) ([]model.Request, error) {
	query := requestSelect + ` WHERE 1=1`
	var args []any

	if filter.RequesterID > 0 {
		query += ` AND r.requester_id = ?`
		args = append(args, filter.RequesterID)
	}
	if filter.ItemID > 0 {
		query += ` AND r.item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// CountRequests returns the number of requests with the given status.
func CountRequests(ctx context.Context, q DBTX, status string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE status = ?`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting requests: %w", err)
	}
	return n, nil
}

// TransitionRequest moves a pending request to status, overwriting its
// quantity and note. It reports false if the request is no longer pending.
func TransitionRequest(ctx context.Context, q DBTX, id int64, status string, quantity int, note string, processedBy int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE requests
		 SET status = ?, quantity = ?, note = ?, processed_at = CURRENT_TIMESTAMP, processed_by = ?
		 WHERE id = ? AND status = ?`,
		status, quantity, note, processedBy, id, model.RequestPending,
	)
	if err != nil {
		return false, fmt.Errorf("transitioning request: %w", err)
	}
	return affected(result)
}

// RejectPendingForItem rejects every pending request for an item with the
// given note and returns how many were rejected.
func RejectPendingForItem(ctx context.Context, q DBTX, itemID int64, note string, processedBy int64) (int, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE requests
		 SET status = ?, note = ?, processed_at = CURRENT_TIMESTAMP, processed_by = ?
		 WHERE item_id = ? AND status = ?`,
		model.RequestRejected, note, processedBy, itemID, model.RequestPending,
	)
	if err != nil {
		return 0, fmt.Errorf("rejecting pending requests: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return int(n), nil
}

func scanRequests(rows *sql.Rows) ([]model.Request, error) {
	var reqs []model.Request
	for rows.Next() {
		var r model.Request
		var processedBy sql.NullInt64
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.ItemID, &r.Quantity, &r.Status, &r.Note,
			&r.CreatedAt, &r.ProcessedAt, &processedBy,
			&r.RequesterName, &r.ItemName); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		if processedBy.Valid {
			r.ProcessedBy = &processedBy.Int64
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}
