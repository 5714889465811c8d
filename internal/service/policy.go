package service

import (
	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// Principal is the authenticated caller of a service operation.
type Principal struct {
	UserID uuid.UUID
	Role   domain.Role
}

// Action names an operation on an existing task.
type Action string

// Task actions checked by a Policy.
const (
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionTransition Action = "transition"
	ActionDelete     Action = "delete"
)

// Policy decides whether p may perform action on task. It returns nil to
// allow and ErrForbidden (or another error) to deny.
type Policy func(p Principal, action Action, task *domain.Task) error

// OwnerOnlyPolicy allows every action to the task's owner and nothing to
// anyone else, admins included.
func OwnerOnlyPolicy(p Principal, _ Action, task *domain.Task) error {
	if p.UserID == uuid.Nil || task.OwnerID != p.UserID {
		return ErrForbidden
	}
	return nil
}
