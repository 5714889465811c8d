package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits for tasks.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Due dates must fall within years that RFC 3339 can represent.
const (
	MinDueYear = 1
	MaxDueYear = 9999
)

// Task is a unit of work owned by exactly one user.
// Version is incremented by the store on every successful write and is used
// for optimistic concurrency control.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskUpdate is a partial update. Nil fields are left unchanged.
// ClearDueDate removes the due date and takes precedence over DueDate.
type TaskUpdate struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *Status
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil && !u.ClearDueDate && u.Status == nil
}

// NewTask creates an Open task. The title is trimmed and must be non-empty.
// Unless allowPastDue is set, a due date before now is rejected.
func NewTask(
	ownerID uuid.UUID,
	title, description string,
	dueDate *time.Time,
	now time.Time,
	allowPastDue bool,
) (*Task, error) {
	if dueDate != nil {
		if err := checkDueDate(*dueDate, now, allowPastDue); err != nil {
			return nil, err
		}
		d := dueDate.UTC().Truncate(time.Microsecond)
		dueDate = &d
	}

	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      StatusOpen,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks field-level invariants.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return NewValidationError("description", "is too long", nil)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "is not a valid status", nil)
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		return NewValidationError("updated_at", "cannot precede created_at", nil)
	}
	return nil
}

// ValidateTitle rejects blank and over-long titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError("title", "cannot be empty", nil)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return NewValidationError("title", "is too long", nil)
	}
	return nil
}

// Transition moves the task to status to, or returns a *TransitionError
// when to is not reachable from the current status.
func (t *Task) Transition(to Status, now time.Time) error {
	if !to.Valid() {
		return NewValidationError("status", "is not a valid status", nil)
	}
	if !CanTransition(t.Status, to) {
		return &TransitionError{
			TaskID:  t.ID,
			From:    t.Status,
			To:      to,
			Allowed: AllowedTransitions(t.Status),
		}
	}
	t.Status = to
	t.touch(now)
	return nil
}

// Apply applies a partial update. A Status equal to the current status is
// ignored; any other status goes through Transition. Changed due dates obey
// the same past-date rule as NewTask. On error the task is left unmodified.
func (t *Task) Apply(u TaskUpdate, now time.Time, allowPastDue bool) error {
	next := *t

	if u.Title != nil {
		next.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		next.Description = strings.TrimSpace(*u.Description)
	}
	switch {
	case u.ClearDueDate:
		next.DueDate = nil
	case u.DueDate != nil:
		if err := checkDueDate(*u.DueDate, now, allowPastDue); err != nil {
			return err
		}
		d := u.DueDate.UTC().Truncate(time.Microsecond)
		next.DueDate = &d
	}
	if u.Status != nil && *u.Status != t.Status {
		if err := next.Transition(*u.Status, now); err != nil {
			return err
		}
	}

	next.touch(now)
	if err := next.Validate(); err != nil {
		return err
	}

	*t = next
	return nil
}

// touch advances UpdatedAt, never moving it backwards.
func (t *Task) touch(now time.Time) {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
}

func checkDueDate(due, now time.Time, allowPast bool) error {
	if y := due.UTC().Year(); y < MinDueYear || y > MaxDueYear {
		return NewValidationError("due_date", "is out of range", nil)
	}
	if !allowPast && due.Before(now) {
		return NewValidationError("due_date", "cannot be in the past", nil)
	}
	return nil
}
