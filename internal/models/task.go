package models

import (
	"time"
)

type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether a status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskRecord is the durable per-task status document. Exactly one of
// Ticket or Error is set once the status is terminal; both are empty
// while the task is still processing.
type TaskRecord struct {
	ID        string      `json:"id"`
	Status    TaskStatus  `json:"status"`
	Ticket    *TicketData `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
