// Package ledger records stock movements. Entries are append-only; the
// running stock total lives on the item.
package ledger

import (
	"context"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

// Record appends a movement of quantity units of itemID.
func Record(ctx context.Context, q store.DBTX, itemID int64, kind string, quantity int, description string, actorID int64) (*model.Mutation, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("mutation quantity must be positive").With("quantity", quantity)
	}
	if kind != model.MutationIn && kind != model.MutationOut {
		return nil, apperr.Validation("unknown mutation kind").With("kind", kind)
	}
	return store.CreateMutation(ctx, q, itemID, kind, quantity, description, actorID)
}

// List returns movements newest first with item and actor names joined.
func List(ctx context.Context, q store.DBTX, filter model.MutationFilter) ([]model.Mutation, error) {
	if filter.Kind != "" && filter.Kind != model.MutationIn && filter.Kind != model.MutationOut {
		return nil, apperr.Validation("unknown mutation kind").With("kind", filter.Kind)
	}
	return store.ListMutations(ctx, q, filter)
}
