package model

import "time"

// Mutation records one stock movement.
type Mutation struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	Kind        string    `json:"kind"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	ActorID     int64     `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName  string `json:"item_name,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
}

// Mutation kinds.
const (
	MutationIn  = "in"
	MutationOut = "out"
)

// MutationFilter narrows a ledger listing. Zero values match everything.
type MutationFilter struct {
	ItemID int64
	Kind   string
}
