// Package catalog manages the item catalog. Deleting an item rejects every
// pending request for it so nothing is left waiting on an item that no longer
// exists.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/audit"
	"github.com/erazemk/pisarna/internal/imaging"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

// CascadeNote is written on pending requests rejected by an item deletion.
const CascadeNote = "item removed from system (auto-cancelled)"

// Service implements catalog operations on top of the store.
type Service struct {
	db *sql.DB
}

// New returns a catalog service backed by db.
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// ListItems returns all items, optionally restricted to one category.
func (s *Service) ListItems(ctx context.Context, category string) ([]model.Item, error) {
	return store.ListItems(ctx, s.db, strings.TrimSpace(category))
}

// GetItem returns an item or a not-found error.
func (s *Service) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound("item", id)
	}
	return item, nil
}

// AddItem creates an item. Code and name are required and the code must be unused.
func (s *Service) AddItem(ctx context.Context, actorID int64, fields model.Item) (*model.Item, error) {
	normalize(&fields)
	if err := validate(fields); err != nil {
		return nil, err
	}

	var created *model.Item
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		taken, err := store.CodeTaken(ctx, tx, fields.Code, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("code", fields.Code)
		}

		created, err = store.CreateItem(ctx, tx, fields)
		if err != nil {
			return err
		}

		return audit.Record(ctx, tx, actorID, model.ActionAddItem,
			fmt.Sprintf("added item %s (%s), stock %d", created.Code, created.Name, created.Stock))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateItem merges patch into the item and refreshes its updated_at.
func (s *Service) UpdateItem(ctx context.Context, actorID, id int64, patch model.ItemPatch) (*model.Item, error) {
	var updated *model.Item
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item", id)
		}

		patch.Apply(item)
		normalize(item)
		if err := validate(*item); err != nil {
			return err
		}

		taken, err := store.CodeTaken(ctx, tx, item.Code, item.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Duplicate("code", item.Code)
		}

		if err := store.UpdateItem(ctx, tx, item); err != nil {
			return err
		}
		if updated, err = store.GetItem(ctx, tx, id); err != nil {
			return err
		}

		return audit.Record(ctx, tx, actorID, model.ActionEditItem,
			fmt.Sprintf("edited item %s (%s)", updated.Code, updated.Name))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem rejects the item's pending requests, removes the item and
// returns how many requests were cancelled.
func (s *Service) DeleteItem(ctx context.Context, actorID, id int64) (int, error) {
	var cancelled int
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item", id)
		}

		cancelled, err = store.RejectPendingForItem(ctx, tx, id, CascadeNote, actorID)
		if err != nil {
			return err
		}
		if err := store.DeleteItem(ctx, tx, id); err != nil {
			return err
		}

		return audit.Record(ctx, tx, actorID, model.ActionDeleteItem,
			fmt.Sprintf("deleted item %s (%s), %d pending requests auto-cancelled", item.Code, item.Name, cancelled))
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

// SetPhoto normalises and stores an item photo.
func (s *Service) SetPhoto(ctx context.Context, actorID, id int64, r io.Reader) (*imaging.Photo, error) {
	photo, err := imaging.Normalize(r)
	if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "invalid photo")
	}
	if err != nil {
		return nil, err
	}

	err = store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := store.SetItemImage(ctx, tx, id, photo.Data, photo.MIME)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("item", id)
		}
		return audit.Record(ctx, tx, actorID, model.ActionEditItem,
			fmt.Sprintf("updated photo of item #%d (%dx%d)", id, photo.Width, photo.Height))
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// Photo returns an item's stored photo. It fails with not-found when the
// item is missing or has no photo.
func (s *Service) Photo(ctx context.Context, id int64) ([]byte, string, error) {
	data, mime, err := store.GetItemImage(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", apperr.NotFound("photo", id)
	}
	return data, mime, nil
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalItems, err = store.CountItems(gctx, s.db)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalStock, err = store.SumStock(gctx, s.db)
		return err
	})
	g.Go(func() (err error) {
		stats.LowStockItems, err = store.CountLowStock(gctx, s.db, model.LowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingRequests, err = store.CountRequests(gctx, s.db, model.RequestPending)
		return err
	})

	if err := g.Wait(); err != nil {
		return model.Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}

func normalize(item *model.Item) {
	item.Code = strings.TrimSpace(item.Code)
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	item.Unit = strings.TrimSpace(item.Unit)
	item.Location = strings.TrimSpace(item.Location)
}

func validate(item model.Item) error {
	switch {
	case item.Code == "":
		return apperr.Validation("item code is required").With("field", "code")
	case item.Name == "":
		return apperr.Validation("item name is required").With("field", "name")
	case item.Stock < 0:
		return apperr.Validation("stock cannot be negative").With("field", "stock").With("stock", item.Stock)
	}
	return nil
}
