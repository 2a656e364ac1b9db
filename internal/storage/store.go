package storage

import (
	"context"
	"errors"

	"ticket2ics/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the durable record of a task: its raw image, its
// structured result, its status document and its calendar artifact,
// all keyed by the task id. All writes are last-writer-wins.
type TaskStore interface {
	// CreateTask allocates a task id from the submission time and the
	// sanitized filename, creates the task's storage location and
	// persists the raw image. It succeeds or fails as a unit.
	CreateTask(ctx context.Context, filename string, image []byte) (string, error)

	// WriteStatus overwrites the task's status record. Only the
	// asynchronous path ever calls this.
	WriteStatus(ctx context.Context, id string, status models.TaskStatus, ticket *models.TicketData, errMsg string) error

	// WriteResult persists the recognized ticket data.
	WriteResult(ctx context.Context, id string, ticket *models.TicketData) error

	// WriteCalendar persists the generated calendar bytes.
	WriteCalendar(ctx context.Context, id string, data []byte) error

	// ReadStatus returns the current status record, or ErrTaskNotFound
	// when no status record exists for the id.
	ReadStatus(ctx context.Context, id string) (*models.TaskRecord, error)

	// CalendarPath returns the path of the calendar artifact, or
	// ErrTaskNotFound when it has not been written.
	CalendarPath(ctx context.Context, id string) (string, error)
}
