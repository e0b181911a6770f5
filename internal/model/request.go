package model

import "time"

// Request is a staff member's ask for a quantity of an item.
type Request struct {
	ID          int64      `json:"id"`
	RequesterID int64      `json:"requester_id"`
	ItemID      int64      `json:"item_id"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	Note        string     `json:"note"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy *int64     `json:"processed_by,omitempty"`

	// Joined fields (not always populated).
	RequesterName string `json:"requester_name,omitempty"`
	ItemName      string `json:"item_name,omitempty"`
}

// Request statuses. Approved and rejected are terminal.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// ValidRequestStatus reports whether status is a known request status.
func ValidRequestStatus(status string) bool {
	switch status {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// RequestFilter narrows a request listing. Zero values match everything.
type RequestFilter struct {
	RequesterID int64
	ItemID      int64
	Status      string
}
