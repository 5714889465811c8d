package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore. It panics if db is nil.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const selectTask = `
		SELECT id, owner_id, title, description, status, due_date, version, created_at, updated_at
		FROM tasks`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, title, description, status, due_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`,
		task.ID, task.OwnerID, task.Title, task.Description, string(task.Status),
		nullableTime(task.DueDate), task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Debug("failed to insert task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	task.Version = 1
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, selectTask+` WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, due_date = $4, updated_at = $5, version = version + 1
		WHERE id = $6 AND version = $7`,
		task.Title, task.Description, string(task.Status), nullableTime(task.DueDate),
		task.UpdatedAt.UTC(), task.ID, expectedVersion,
	)
	if err != nil {
		return MapError(err)
	}
	if err := s.guardVersion(ctx, res, task.ID); err != nil {
		return err
	}
	task.Version = expectedVersion + 1
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return MapError(err)
	}
	return s.guardVersion(ctx, res, id)
}

// guardVersion distinguishes a lost race from a missing row after a
// version-guarded write that touched nothing.
func (s *PostgresTaskStore) guardVersion(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrTaskNotFound
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("version-guarded write lost",
		slog.String("task_id", id.String()))
	return store.ErrConflict
}

// ListByOwner implements store.TaskStore.ListByOwner
func (s *PostgresTaskStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter domain.TaskFilter,
	page store.PageRequest,
) (*store.TaskPage, error) {
	query, args := buildListQuery(ownerID, filter, page)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("owner_id", ownerID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return store.FinishPage(tasks, page), nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// buildListQuery renders the filtered keyset query. The page fetches one
// extra row so the caller can tell whether another page follows.
func buildListQuery(ownerID uuid.UUID, filter domain.TaskFilter, page store.PageRequest) (string, []any) {
	args := []any{ownerID}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where := []string{"owner_id = $1"}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = next(string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.DueAfter != nil {
		where = append(where, "due_date >= "+next(filter.DueAfter.UTC()))
	}
	if filter.DueBefore != nil {
		where = append(where, "due_date < "+next(filter.DueBefore.UTC()))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, "title ILIKE "+next(store.LikePattern(q))+` ESCAPE '\'`)
	}
	if page.After != nil {
		at := next(page.After.CreatedAt.UTC())
		where = append(where, "(created_at, id) < ("+at+", "+next(page.After.ID)+")")
	}

	query := selectTask + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		LIMIT ` + next(page.Size()+1)
	return query, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		t      domain.Task
		status string
		due    sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &due,
		&t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.Status(status)
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
