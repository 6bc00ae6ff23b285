package activity

import (
	"time"
)

// Activity kinds, one per task event.
const (
	KindCreated          = "task_created"
	KindToggled          = "task_toggled"
	KindUpdated          = "task_updated"
	KindDeleted          = "task_deleted"
	KindCompletedCleared = "completed_cleared"
)

// MaxRecent is the number of entries kept in a summary's recent list.
const MaxRecent = 20

// Entry is one recorded mutation.
type Entry struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	TaskID string    `json:"task_id,omitempty"`
	Title  string    `json:"title,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Summary is the per-owner activity record stored in the bucket.
type Summary struct {
	UserID    string           `json:"user_id"`
	Counts    map[string]int64 `json:"counts"`
	Recent    []Entry          `json:"recent"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// GetActivityRequest is the request for the get-activity service.
type GetActivityRequest struct {
	UserID string `json:"user_id"`
}

// GetActivityResponse carries the owner's summary. An owner with no recorded
// activity gets an empty summary, not an error.
type GetActivityResponse struct {
	Activity *Summary `json:"activity,omitempty"`
	Error    string   `json:"error,omitempty"`
}
