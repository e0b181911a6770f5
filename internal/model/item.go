package model

import "time"

// Item is an inventory-tracked office supply. Stock is a running total;
// the mutation ledger holds the movement history.
type Item struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Stock     int       `json:"stock"`
	Unit      string    `json:"unit"`
	Location  string    `json:"location"`
	ImageMime string    `json:"image_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LowStockThreshold is the stock level below which an item counts as low on the dashboard.
const LowStockThreshold = 20

// ItemPatch holds the fields of a partial item update. Nil fields are left unchanged.
type ItemPatch struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Stock    *int    `json:"stock"`
	Unit     *string `json:"unit"`
	Location *string `json:"location"`
}

// Apply merges the patch into item.
func (p ItemPatch) Apply(item *Item) {
	if p.Code != nil {
		item.Code = *p.Code
	}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Stock != nil {
		item.Stock = *p.Stock
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.Location != nil {
		item.Location = *p.Location
	}
}

// Stats summarises the catalog for the admin dashboard.
type Stats struct {
	TotalItems      int `json:"total_items"`
	TotalStock      int `json:"total_stock"`
	LowStockItems   int `json:"low_stock_items"`
	PendingRequests int `json:"pending_requests"`
}
