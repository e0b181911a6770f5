package store

import (
	"context"
	"testing"

	"github.com/erazemk/pisarna/internal/db"
	"github.com/erazemk/pisarna/internal/model"
)

func newItem(t *testing.T, q DBTX, code string, stock int) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), q, model.Item{
		Code: code, Name: "Item " + code, Category: "Kertas", Stock: stock, Unit: "Rim", Location: "Rak A",
	})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", code, err)
	}
	return item
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newItem(t, database, "ATK-001", 12)
	if item.ID == 0 || item.Stock != 12 || item.Unit != "Rim" {
		t.Fatalf("unexpected item: %+v", item)
	}

	got, err := GetItemByCode(ctx, database, "ATK-001")
	if err != nil {
		t.Fatalf("GetItemByCode: %v", err)
	}
	if got == nil || got.ID != item.ID {
		t.Fatalf("expected item %d by code, got %+v", item.ID, got)
	}

	missing, err := GetItem(ctx, database, 9999)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing item, got %+v", missing)
	}
}

func TestListItemsByCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	newItem(t, database, "ATK-002", 1)
	newItem(t, database, "ATK-001", 1)
	other, _ := CreateItem(ctx, database, model.Item{Code: "ATK-003", Name: "Stapler", Category: "Alat"})
	if other == nil {
		t.Fatal("CreateItem returned nil")
	}

	all, err := ListItems(ctx, database, "")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(all) != 3 || all[0].Code != "ATK-001" {
		t.Fatalf("expected 3 items ordered by code, got %+v", all)
	}

	paper, _ := ListItems(ctx, database, "Kertas")
	if len(paper) != 2 {
		t.Errorf("expected 2 paper items, got %d", len(paper))
	}
}

func TestDuplicateCodeRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newItem(t, database, "ATK-001", 1)
	if _, err := CreateItem(ctx, database, model.Item{Code: "ATK-001", Name: "Again"}); err == nil {
		t.Error("expected unique index violation")
	}

	taken, _ := CodeTaken(ctx, database, "ATK-001", 0)
	if !taken {
		t.Error("expected code to be taken")
	}
	taken, _ = CodeTaken(ctx, database, "ATK-001", item.ID)
	if taken {
		t.Error("an item's own code should not count as taken")
	}
}

func TestDebitItemStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newItem(t, database, "ATK-001", 10)

	ok, err := DebitItemStock(ctx, database, item.ID, 6)
	if err != nil || !ok {
		t.Fatalf("first debit: ok=%v err=%v", ok, err)
	}

	ok, err = DebitItemStock(ctx, database, item.ID, 6)
	if err != nil {
		t.Fatalf("second debit: %v", err)
	}
	if ok {
		t.Error("debit beyond stock should not apply")
	}

	ok, _ = DebitItemStock(ctx, database, item.ID, 4)
	if !ok {
		t.Error("debit of exact remaining stock should apply")
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Stock != 0 {
		t.Errorf("expected stock 0, got %d", got.Stock)
	}

	ok, _ = DebitItemStock(ctx, database, 9999, 1)
	if ok {
		t.Error("debit of missing item should not apply")
	}
}

func TestUpdateAndDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newItem(t, database, "ATK-001", 5)
	item.Name = "Kertas HVS A4"
	item.Stock = 25
	if err := UpdateItem(ctx, database, item); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "Kertas HVS A4" || got.Stock != 25 {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	got, _ = GetItem(ctx, database, item.ID)
	if got != nil {
		t.Errorf("expected item gone, got %+v", got)
	}
}

func TestStockCounts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	newItem(t, database, "ATK-001", 5)
	newItem(t, database, "ATK-002", 20)
	newItem(t, database, "ATK-003", 100)

	n, _ := CountItems(ctx, database)
	if n != 3 {
		t.Errorf("CountItems = %d, want 3", n)
	}
	sum, _ := SumStock(ctx, database)
	if sum != 125 {
		t.Errorf("SumStock = %d, want 125", sum)
	}
	low, _ := CountLowStock(ctx, database, model.LowStockThreshold)
	if low != 1 {
		t.Errorf("CountLowStock = %d, want 1", low)
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := newItem(t, database, "ATK-001", 1)

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil || data != nil || mime != "" {
		t.Fatalf("expected no image, got %d bytes %q err=%v", len(data), mime, err)
	}

	ok, err := SetItemImage(ctx, database, item.ID, []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil || !ok {
		t.Fatalf("SetItemImage: ok=%v err=%v", ok, err)
	}

	data, mime, _ = GetItemImage(ctx, database, item.ID)
	if len(data) != 2 || mime != "image/jpeg" {
		t.Errorf("unexpected image: %d bytes %q", len(data), mime)
	}

	ok, _ = SetItemImage(ctx, database, 9999, []byte{1}, "image/jpeg")
	if ok {
		t.Error("setting image on missing item should report false")
	}
}
