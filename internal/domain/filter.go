package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxQueryLength bounds the free-text title search term.
const MaxQueryLength = 100

// TaskFilter narrows a task listing. The zero value matches every task.
//
// DueAfter is inclusive and DueBefore is exclusive. Tasks without a due date
// never match a filter that sets either bound.
type TaskFilter struct {
	Statuses  []Status
	DueAfter  *time.Time
	DueBefore *time.Time
	// Query is matched case-insensitively as a substring of the title.
	Query string
}

// Validate checks that statuses are known and the due range is not inverted.
func (f TaskFilter) Validate() error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return NewValidationError("status", "contains an unknown status", nil)
		}
	}
	if f.DueAfter != nil && f.DueBefore != nil && !f.DueAfter.Before(*f.DueBefore) {
		return NewValidationError("due_after", "must be before due_before", nil)
	}
	if utf8.RuneCountInString(f.Query) > MaxQueryLength {
		return NewValidationError("q", "is too long", nil)
	}
	return nil
}

// Matches reports whether t satisfies the filter. Stores translate the same
// rules to SQL; Matches is the reference used by in-memory stores and tests.
func (f TaskFilter) Matches(t *Task) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DueAfter != nil || f.DueBefore != nil {
		if t.DueDate == nil {
			return false
		}
		if f.DueAfter != nil && t.DueDate.Before(*f.DueAfter) {
			return false
		}
		if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
			return false
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), strings.ToLower(q)) {
			return false
		}
	}
	return true
}
