// Package audit keeps the append-only activity log. The actor's display name
// is captured when an entry is written, so renaming or deleting a user does
// not rewrite history.
package audit

import (
	"context"
	"fmt"

	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

// SystemActorID marks entries written by the system itself (seeding, migrations).
const SystemActorID int64 = 0

const (
	systemName  = "System"
	unknownName = "Unknown"
)

// Record writes an activity entry for actorID using q, which is normally the
// caller's transaction.
func Record(ctx context.Context, q store.DBTX, actorID int64, action, detail string) error {
	name, err := actorName(ctx, q, actorID)
	if err != nil {
		return err
	}
	if err := store.CreateActivity(ctx, q, actorID, name, action, detail); err != nil {
		return fmt.Errorf("recording %q: %w", action, err)
	}
	return nil
}

// List returns the newest entries first. A limit of zero or less returns all.
func List(ctx context.Context, q store.DBTX, limit int) ([]model.ActivityLogEntry, error) {
	return store.ListActivity(ctx, q, limit)
}

func actorName(ctx context.Context, q store.DBTX, actorID int64) (string, error) {
	if actorID == SystemActorID {
		return systemName, nil
	}
	u, err := store.GetUser(ctx, q, actorID)
	if err != nil {
		return "", fmt.Errorf("resolving actor: %w", err)
	}
	if u == nil {
		return unknownName, nil
	}
	return u.Name, nil
}
