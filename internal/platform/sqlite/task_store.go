package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

// SQLiteTaskStore implements store.TaskStore on SQLite.
type SQLiteTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteTaskStore creates a task store over db. It panics if db is nil.
func NewSQLiteTaskStore(db store.DBTX, logger *slog.Logger) *SQLiteTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*SQLiteTaskStore)(nil)

const taskColumns = `id, owner_id, title, description, status, due_date, version, created_at, updated_at`

// Create implements store.TaskStore.Create.
func (s *SQLiteTaskStore) Create(ctx context.Context, task *domain.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		task.ID, task.OwnerID, task.Title, task.Description, string(task.Status),
		nullableMicros(task), toMicros(task.CreatedAt), toMicros(task.UpdatedAt),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("failed to insert task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	task.Version = 1
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *SQLiteTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
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

// Update implements store.TaskStore.Update.
func (s *SQLiteTaskStore) Update(ctx context.Context, task *domain.Task, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, status = ?, due_date = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		task.Title, task.Description, string(task.Status), nullableMicros(task), toMicros(task.UpdatedAt),
		task.ID, expectedVersion,
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

// Delete implements store.TaskStore.Delete.
func (s *SQLiteTaskStore) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND version = ?`, id, expectedVersion)
	if err != nil {
		return MapError(err)
	}
	return s.guardVersion(ctx, res, id)
}

// guardVersion tells a lost race (row present, version moved) from a
// missing row when a version-guarded write touched nothing.
func (s *SQLiteTaskStore) guardVersion(ctx context.Context, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = ?)`, id).Scan(&exists); err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrTaskNotFound
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("version-guarded write lost",
		slog.String("task_id", id.String()))
	return store.ErrConflict
}

// ListByOwner implements store.TaskStore.ListByOwner.
func (s *SQLiteTaskStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter domain.TaskFilter,
	page store.PageRequest,
) (*store.TaskPage, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)

	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.DueAfter != nil {
		where = append(where, "due_date IS NOT NULL AND due_date >= ?")
		args = append(args, toMicros(*filter.DueAfter))
	}
	if filter.DueBefore != nil {
		where = append(where, "due_date IS NOT NULL AND due_date < ?")
		args = append(args, toMicros(*filter.DueBefore))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, CaseFoldFunc+`(title) LIKE ? ESCAPE '\'`)
		args = append(args, store.LikePattern(strings.ToLower(q)))
	}
	if page.After != nil {
		at := toMicros(page.After.CreatedAt)
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, at, at, page.After.ID.String())
	}
	args = append(args, page.Size()+1)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ?`

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

// WithTx implements store.TaskStore.WithTx.
func (s *SQLiteTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &SQLiteTaskStore{db: tx, logger: s.logger}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		t                    domain.Task
		status               string
		due                  sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &due,
		&t.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.Status(status)
	if due.Valid {
		d := fromMicros(due.Int64)
		t.DueDate = &d
	}
	t.CreatedAt = fromMicros(createdAt)
	t.UpdatedAt = fromMicros(updatedAt)
	return &t, nil
}

func nullableMicros(task *domain.Task) sql.NullInt64 {
	if task.DueDate == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*task.DueDate), Valid: true}
}
