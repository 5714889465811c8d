package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
// Character rules are enforced by the domain after normalization.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// ChangePasswordRequest defines the payload for PUT /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

// DeleteAccountRequest defines the payload for DELETE /auth/me.
type DeleteAccountRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateTaskRequest defines the payload for POST /tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=100"`
	Description string     `json:"description" validate:"max=500"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest defines the payload for PATCH /tasks/{id}. Absent fields
// are left unchanged; "due_date": null clears the due date.
type UpdateTaskRequest struct {
	Title       *string      `json:"title"       validate:"omitempty,max=100"`
	Description *string      `json:"description" validate:"omitempty,max=500"`
	DueDate     OptionalTime `json:"due_date"`
	Status      *string      `json:"status"`
}

// TransitionRequest defines the payload for POST /tasks/{id}/transition.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// OptionalTime distinguishes an absent JSON field from an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON implements json.Unmarshaler. It is only called for fields
// present in the payload.
func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      domain.Status `json:"status"`
	DueDate     *time.Time    `json:"due_date"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// AllowedTransitions lists the statuses this task can move to next.
	AllowedTransitions []domain.Status `json:"allowed_transitions"`
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Tasks    []TaskResponse `json:"tasks"`
	NextPage string         `json:"next_page,omitempty"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:                 t.ID,
		OwnerID:            t.OwnerID,
		Title:              t.Title,
		Description:        t.Description,
		Status:             t.Status,
		DueDate:            t.DueDate,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		AllowedTransitions: domain.AllowedTransitions(t.Status),
	}
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
