package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// Cursor is a keyset position in the (created_at DESC, id DESC) ordering.
// A page starting at a cursor contains only rows strictly after it, so
// inserts of newer tasks never shift later pages.
type Cursor struct {
	CreatedAt time.Time `json:"c"`
	ID        uuid.UUID `json:"i"`
}

// PageRequest selects one page of a listing. A nil After starts at the top.
type PageRequest struct {
	Limit int
	After *Cursor
}

// TaskPage is one page of tasks. Next is nil on the last page.
type TaskPage struct {
	Tasks []domain.Task
	Next  *Cursor
}

// CursorFor returns the cursor positioned at t.
func CursorFor(t *domain.Task) *Cursor {
	return &Cursor{CreatedAt: t.CreatedAt.UTC(), ID: t.ID}
}

// Before reports whether the row (createdAt, id) sorts after the cursor in
// descending order, i.e. belongs on a page that starts at c.
func (c *Cursor) Before(createdAt time.Time, id uuid.UUID) bool {
	if createdAt.Equal(c.CreatedAt) {
		return id.String() < c.ID.String()
	}
	return createdAt.Before(c.CreatedAt)
}

// EncodeCursor renders c as an opaque URL-safe page token.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a page token produced by EncodeCursor. An empty token
// yields a nil cursor. Malformed tokens are validation errors.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.NewValidationError("page", "is not a valid page token", err)
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, domain.NewValidationError("page", "is not a valid page token", err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, domain.NewValidationError("page", "is not a valid page token", nil)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// DefaultPageLimit is used when a PageRequest carries no positive Limit.
const DefaultPageLimit = 50

// Size returns the effective page size.
func (p PageRequest) Size() int {
	if p.Limit <= 0 {
		return DefaultPageLimit
	}
	return p.Limit
}

// FinishPage trims rows fetched with one look-ahead row (Size()+1) down to a
// page and sets Next when more rows follow. rows is never returned nil.
func FinishPage(rows []domain.Task, p PageRequest) *TaskPage {
	if rows == nil {
		rows = []domain.Task{}
	}
	page := &TaskPage{Tasks: rows}
	if n := p.Size(); len(rows) > n {
		page.Tasks = rows[:n]
		page.Next = CursorFor(&page.Tasks[n-1])
	}
	return page
}
