package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/pisarna/internal/model"
)

const itemColumns = `id, code, name, category, stock, unit, location, image_mime, created_at, updated_at`

// CreateItem inserts an item and returns it with its generated id and timestamps.
func CreateItem(ctx context.Context, q DBTX, item model.Item) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO items (code, name, category, stock, unit, location) VALUES (?, ?, ?, ?, ?, ?)`,
		item.Code, item.Name, item.Category, item.Stock, item.Unit, item.Location,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, q DBTX, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemByCode returns an item by its catalog code.
func GetItemByCode(ctx context.Context, q DBTX, code string) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE code = ?`, code,
	))
	if err != nil {
		return nil, fmt.Errorf("getting item by code: %w", err)
	}
	return item, nil
}

// ListItems returns all items ordered by code, optionally filtered by category.
func ListItems(ctx context.Context, q DBTX, category string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY code, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var imageMime sql.NullString
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &item.Category, &item.Stock,
			&item.Unit, &item.Location, &imageMime, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.ImageMime = imageMime.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItems returns the number of items.
func CountItems(ctx context.Context, q DBTX) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// SumStock returns the total number of stock units across all items.
func SumStock(ctx context.Context, q DBTX) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(SUM(stock), 0) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("summing stock: %w", err)
	}
	return n, nil
}

// CountLowStock returns the number of items whose stock is below threshold.
func CountLowStock(ctx context.Context, q DBTX, threshold int) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE stock < ?`, threshold).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting low stock items: %w", err)
	}
	return n, nil
}

// CodeTaken reports whether another item (not excludeID) already uses code.
func CodeTaken(ctx context.Context, q DBTX, code string, excludeID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE code = ? AND id <> ?`, code, excludeID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking item code: %w", err)
	}
	return n > 0, nil
}

// UpdateItem writes all editable fields of item and refreshes updated_at.
func UpdateItem(ctx context.Context, q DBTX, item *model.Item) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET code = ?, name = ?, category = ?, stock = ?, unit = ?, location = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		item.Code, item.Name, item.Category, item.Stock, item.Unit, item.Location, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DebitItemStock subtracts quantity from an item's stock only if enough is
// on hand. It reports false when the item is missing or short.
func DebitItemStock(ctx context.Context, q DBTX, id int64, quantity int) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND stock >= ?`,
		quantity, id, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("debiting item stock: %w", err)
	}
	return affected(result)
}

// DeleteItem removes an item.
func DeleteItem(ctx context.Context, q DBTX, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, q DBTX, id int64, image []byte, mime string) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return false, fmt.Errorf("setting item image: %w", err)
	}
	return affected(result)
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, q DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

func scanItem(row *sql.Row) (*model.Item, error) {
	item := &model.Item{}
	var imageMime sql.NullString
	err := row.Scan(&item.ID, &item.Code, &item.Name, &item.Category, &item.Stock,
		&item.Unit, &item.Location, &imageMime, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.ImageMime = imageMime.String
	return item, nil
}
