package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// Rows are keyed by task ID. Writes after creation are version-guarded: the
// caller passes the version it read, and the store only applies the write if
// the row still carries that version.
type TaskStore interface {
	// Create inserts a new task with Version 1 (the task's Version field is
	// set on success). Returns ErrDuplicate if the ID is already present.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task. Returns ErrTaskNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update writes every mutable field of task if the stored version equals
	// expectedVersion, then sets task.Version to expectedVersion+1.
	// Returns ErrConflict if the version moved on and ErrTaskNotFound if the
	// row is gone.
	Update(ctx context.Context, task *domain.Task, expectedVersion int64) error

	// Delete removes the task if its version equals expectedVersion.
	// Returns ErrConflict or ErrTaskNotFound like Update.
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error

	// ListByOwner returns one page of the owner's tasks matching filter,
	// ordered by created_at descending then id descending.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter domain.TaskFilter, page PageRequest) (*TaskPage, error)

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
