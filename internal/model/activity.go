package model

import "time"

// ActivityLogEntry is one audit record. ActorName is a snapshot taken at
// write time and is never re-joined.
type ActivityLogEntry struct {
	ID        int64     `json:"id"`
	ActorID   int64     `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity actions.
const (
	ActionAddUser        = "Add User"
	ActionEditUser       = "Edit User"
	ActionDeleteUser     = "Delete User"
	ActionAddItem        = "Add Item"
	ActionEditItem       = "Edit Item"
	ActionDeleteItem     = "Delete Item"
	ActionRequestItem    = "Request Item"
	ActionApproveRequest = "Approve Request"
	ActionRejectRequest  = "Reject Request"
	ActionSeed           = "Seed"
)
