package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/service"
)

// MockTaskService implements service.TaskService for testing
type MockTaskService struct {
	CreateFn     func(ctx context.Context, p service.Principal, in service.CreateTaskInput) (*domain.Task, error)
	GetFn        func(ctx context.Context, p service.Principal, id uuid.UUID) (*domain.Task, error)
	ListFn       func(ctx context.Context, p service.Principal, in service.ListTasksInput) (*service.TaskList, error)
	UpdateFn     func(ctx context.Context, p service.Principal, id uuid.UUID, u domain.TaskUpdate) (*domain.Task, error)
	TransitionFn func(ctx context.Context, p service.Principal, id uuid.UUID, to domain.Status) (*domain.Task, error)
	DeleteFn     func(ctx context.Context, p service.Principal, id uuid.UUID) error

	// Default return values
	Task         *domain.Task
	Page         *service.TaskList
	DefaultError error
}

var _ service.TaskService = (*MockTaskService)(nil)

// Create implements the TaskService.Create method
func (m *MockTaskService) Create(ctx context.Context, p service.Principal, in service.CreateTaskInput) (*domain.Task, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p, in)
	}
	return m.Task, m.DefaultError
}

// Get implements the TaskService.Get method
func (m *MockTaskService) Get(ctx context.Context, p service.Principal, id uuid.UUID) (*domain.Task, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, p, id)
	}
	return m.Task, m.DefaultError
}

// List implements the TaskService.List method
func (m *MockTaskService) List(ctx context.Context, p service.Principal, in service.ListTasksInput) (*service.TaskList, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, p, in)
	}
	return m.Page, m.DefaultError
}

// Update implements the TaskService.Update method
func (m *MockTaskService) Update(ctx context.Context, p service.Principal, id uuid.UUID, u domain.TaskUpdate) (*domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, p, id, u)
	}
	return m.Task, m.DefaultError
}

// Transition implements the TaskService.Transition method
func (m *MockTaskService) Transition(ctx context.Context, p service.Principal, id uuid.UUID, to domain.Status) (*domain.Task, error) {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, p, id, to)
	}
	return m.Task, m.DefaultError
}

// Delete implements the TaskService.Delete method
func (m *MockTaskService) Delete(ctx context.Context, p service.Principal, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, p, id)
	}
	return m.DefaultError
}
