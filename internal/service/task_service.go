package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

// CreateTaskInput carries the caller-supplied fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// ListTasksInput selects a page of the caller's tasks. PageSize 0 means the
// configured default; sizes above the maximum are clamped.
type ListTasksInput struct {
	Filter    domain.TaskFilter
	PageSize  int
	PageToken string
}

// TaskList is one page of tasks plus the token of the next page, empty on
// the last page.
type TaskList struct {
	Tasks         []domain.Task
	NextPageToken string
}

// TaskService is the task lifecycle engine.
type TaskService interface {
	// Create adds an Open task owned by the caller.
	Create(ctx context.Context, p Principal, in CreateTaskInput) (*domain.Task, error)

	// Get returns one task. Returns store.ErrTaskNotFound or ErrForbidden.
	Get(ctx context.Context, p Principal, id uuid.UUID) (*domain.Task, error)

	// List returns the caller's tasks, newest first.
	List(ctx context.Context, p Principal, in ListTasksInput) (*TaskList, error)

	// Update applies a partial update, including an optional status change.
	Update(ctx context.Context, p Principal, id uuid.UUID, u domain.TaskUpdate) (*domain.Task, error)

	// Transition moves the task to status to. Returns a *domain.TransitionError
	// when the edge does not exist.
	Transition(ctx context.Context, p Principal, id uuid.UUID, to domain.Status) (*domain.Task, error)

	// Delete removes the task.
	Delete(ctx context.Context, p Principal, id uuid.UUID) error
}

// TaskServiceConfig holds the business rules of the engine.
type TaskServiceConfig struct {
	AllowPastDueDates bool
	DefaultPageSize   int
	MaxPageSize       int
	QueryTimeout      time.Duration
}

// TaskServiceImpl implements TaskService over a store.TaskStore.
//
// Every write reads the task, checks the policy and the lifecycle rules, and
// then writes with the version it read. Of two racing writers exactly one
// succeeds; the other gets store.ErrConflict.
type TaskServiceImpl struct {
	tasks  store.TaskStore
	policy Policy
	cfg    TaskServiceConfig
	clock  Clock
	logger *slog.Logger
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a task service. A nil policy means OwnerOnlyPolicy.
func NewTaskService(
	tasks store.TaskStore,
	policy Policy,
	cfg TaskServiceConfig,
	clock Clock,
	logger *slog.Logger,
) (*TaskServiceImpl, error) {
	if tasks == nil {
		return nil, errors.New("task service: task store is required")
	}
	if policy == nil {
		policy = OwnerOnlyPolicy
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskServiceImpl{
		tasks:  tasks,
		policy: policy,
		cfg:    cfg,
		clock:  clock,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// Create implements TaskService.
func (s *TaskServiceImpl) Create(ctx context.Context, p Principal, in CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(p.UserID, in.Title, in.Description, in.DueDate, s.clock.now(), s.cfg.AllowPastDueDates)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task",
			slog.String("owner_id", p.UserID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create task: %w", store.MapUnavailable(err))
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", p.UserID.String()))
	return task, nil
}

// Get implements TaskService.
func (s *TaskServiceImpl) Get(ctx context.Context, p Principal, id uuid.UUID) (*domain.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.load(ctx, p, ActionRead, id)
}

// List implements TaskService.
func (s *TaskServiceImpl) List(ctx context.Context, p Principal, in ListTasksInput) (*TaskList, error) {
	if err := in.Filter.Validate(); err != nil {
		return nil, err
	}
	if in.PageSize < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative", nil)
	}
	after, err := store.DecodeCursor(in.PageToken)
	if err != nil {
		return nil, err
	}

	size := in.PageSize
	switch {
	case size == 0:
		size = s.cfg.DefaultPageSize
	case size > s.cfg.MaxPageSize:
		size = s.cfg.MaxPageSize
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.tasks.ListByOwner(ctx, p.UserID, in.Filter, store.PageRequest{Limit: size, After: after})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("owner_id", p.UserID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list tasks: %w", store.MapUnavailable(err))
	}

	return &TaskList{Tasks: page.Tasks, NextPageToken: store.EncodeCursor(page.Next)}, nil
}

// Update implements TaskService.
func (s *TaskServiceImpl) Update(ctx context.Context, p Principal, id uuid.UUID, u domain.TaskUpdate) (*domain.Task, error) {
	if u.IsEmpty() {
		return nil, domain.NewValidationError("", "no fields to update", nil)
	}
	action := ActionUpdate
	if u.Status != nil {
		action = ActionTransition
	}
	return s.mutate(ctx, p, action, id, func(task *domain.Task, now time.Time) error {
		return task.Apply(u, now, s.cfg.AllowPastDueDates)
	})
}

// Transition implements TaskService.
func (s *TaskServiceImpl) Transition(ctx context.Context, p Principal, id uuid.UUID, to domain.Status) (*domain.Task, error) {
	return s.mutate(ctx, p, ActionTransition, id, func(task *domain.Task, now time.Time) error {
		return task.Transition(to, now)
	})
}

// Delete implements TaskService.
func (s *TaskServiceImpl) Delete(ctx context.Context, p Principal, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	task, err := s.load(ctx, p, ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id, task.Version); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			log.Error("failed to delete task",
				slog.String("task_id", id.String()),
				slog.String("error", err.Error()))
		}
		return fmt.Errorf("failed to delete task: %w", store.MapUnavailable(err))
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// mutate runs the read / check / version-guarded write cycle.
func (s *TaskServiceImpl) mutate(
	ctx context.Context,
	p Principal,
	action Action,
	id uuid.UUID,
	change func(task *domain.Task, now time.Time) error,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	task, err := s.load(ctx, p, action, id)
	if err != nil {
		return nil, err
	}

	expected := task.Version
	from := task.Status
	if err := change(task, s.clock.now()); err != nil {
		log.Debug("rejected task change",
			slog.String("task_id", id.String()),
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.tasks.Update(ctx, task, expected); err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info("concurrent task update rejected",
				slog.String("task_id", id.String()),
				slog.Int64("expected_version", expected))
		} else {
			log.Error("failed to update task",
				slog.String("task_id", id.String()),
				slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to update task: %w", store.MapUnavailable(err))
	}

	if from != task.Status {
		log.Info("task status changed",
			slog.String("task_id", id.String()),
			slog.String("from", string(from)),
			slog.String("to", string(task.Status)))
	}
	return task, nil
}

// load fetches a task and applies the policy.
func (s *TaskServiceImpl) load(ctx context.Context, p Principal, action Action, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to load task",
				slog.String("task_id", id.String()),
				slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to load task: %w", store.MapUnavailable(err))
	}
	if err := s.policy(p, action, task); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("task access denied",
			slog.String("task_id", id.String()),
			slog.String("user_id", p.UserID.String()),
			slog.String("action", string(action)))
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}
