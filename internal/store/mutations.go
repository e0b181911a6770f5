package store

import (
	"context"
	"fmt"

	"github.com/erazemk/pisarna/internal/model"
)

// CreateMutation appends a stock movement to the ledger.
func CreateMutation(ctx context.Context, q DBTX, itemID int64, kind string, quantity int, description string, actorID int64) (*model.Mutation, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO mutations (item_id, kind, quantity, description, actor_id) VALUES (?, ?, ?, ?, ?)`,
		itemID, kind, quantity, description, actorID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating mutation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting mutation id: %w", err)
	}

	m := &model.Mutation{}
	err = q.QueryRowContext(ctx,
		`SELECT id, item_id, kind, quantity, description, actor_id, created_at FROM mutations WHERE id = ?`, id,
	).Scan(&m.ID, &m.ItemID, &m.Kind, &m.Quantity, &m.Description, &m.ActorID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading mutation: %w", err)
	}
	return m, nil
}

// ListMutations returns ledger entries newest first, with item and actor
// names joined in. Rows whose item or actor is gone get "Unknown Item" or
// "Unknown".
func ListMutations(ctx context.Context, q DBTX, filter model.MutationFilter) ([]model.Mutation, error) {
	query := `SELECT m.id, m.item_id, m.kind, m.quantity, m.description, m.actor_id, m.created_at,
	                 COALESCE(i.name, 'Unknown Item'), COALESCE(u.name, 'Unknown')
	          FROM mutations m
	          LEFT JOIN items i ON i.id = m.item_id
	          LEFT JOIN users u ON u.id = m.actor_id
	          WHERE 1=1`
	var args []any

	if filter.ItemID > 0 {
		query += ` AND m.item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.Kind != "" {
		query += ` AND m.kind = ?`
		args = append(args, filter.Kind)
	}

	query += ` ORDER BY m.created_at DESC, m.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing mutations: %w", err)
	}
	defer rows.Close()

	var mutations []model.Mutation
	for rows.Next() {
		var m model.Mutation
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Kind, &m.Quantity, &m.Description, &m.ActorID,
			&m.CreatedAt, &m.ItemName, &m.ActorName); err != nil {
			return nil, fmt.Errorf("scanning mutation: %w", err)
		}
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}
