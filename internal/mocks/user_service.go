package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/service"
)

// MockUserService implements service.UserService for testing
type MockUserService struct {
	RegisterFn       func(ctx context.Context, username, password string) (*service.AuthResult, error)
	AuthenticateFn   func(ctx context.Context, username, password string) (*service.AuthResult, error)
	RefreshFn        func(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	ChangePasswordFn func(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	GetUserFn        func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	DeleteAccountFn  func(ctx context.Context, userID uuid.UUID, currentPassword string) error

	// Default return values
	Result       *service.AuthResult
	User         *domain.User
	DefaultError error
}

var _ service.UserService = (*MockUserService)(nil)

// Register implements the UserService.Register method
func (m *MockUserService) Register(ctx context.Context, username, password string) (*service.AuthResult, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, username, password)
	}
	return m.Result, m.DefaultError
}

// Authenticate implements the UserService.Authenticate method
func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*service.AuthResult, error) {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, username, password)
	}
	return m.Result, m.DefaultError
}

// Refresh implements the UserService.Refresh method
func (m *MockUserService) Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return m.Result, m.DefaultError
}

// ChangePassword implements the UserService.ChangePassword method
func (m *MockUserService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if m.ChangePasswordFn != nil {
		return m.ChangePasswordFn(ctx, userID, currentPassword, newPassword)
	}
	return m.DefaultError
}

// GetUser implements the UserService.GetUser method
func (m *MockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userID)
	}
	return m.User, m.DefaultError
}

// DeleteAccount implements the UserService.DeleteAccount method
func (m *MockUserService) DeleteAccount(ctx context.Context, userID uuid.UUID, currentPassword string) error {
	if m.DeleteAccountFn != nil {
		return m.DeleteAccountFn(ctx, userID, currentPassword)
	}
	return m.DefaultError
}
