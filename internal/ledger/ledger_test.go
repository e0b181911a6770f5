package ledger

import (
	"context"
	"testing"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/db"
	"github.com/erazemk/pisarna/internal/model"
)

func TestRecordValidates(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		kind     string
		quantity int
	}{
		{"zero quantity", model.MutationOut, 0},
		{"negative quantity", model.MutationOut, -3},
		{"unknown kind", "transfer", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Record(ctx, database, 1, tt.kind, tt.quantity, "", 1)
			if !apperr.Is(err, apperr.CodeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	entries, _ := List(ctx, database, model.MutationFilter{})
	if len(entries) != 0 {
		t.Errorf("invalid records must not be written, got %d", len(entries))
	}
}

func TestRecordAndList(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, err := Record(ctx, database, 7, model.MutationOut, 4, "approved request #1", 1)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if m.ID == 0 || m.ItemID != 7 || m.Quantity != 4 {
		t.Errorf("unexpected mutation: %+v", m)
	}

	Record(ctx, database, 8, model.MutationIn, 10, "restock", 1)

	out, err := List(ctx, database, model.MutationFilter{Kind: model.MutationOut})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].Description != "approved request #1" {
		t.Errorf("unexpected filtered list: %+v", out)
	}

	if _, err := List(ctx, database, model.MutationFilter{Kind: "bogus"}); !apperr.Is(err, apperr.CodeValidation) {
		t.Errorf("expected validation error for bogus kind filter, got %v", err)
	}
}
