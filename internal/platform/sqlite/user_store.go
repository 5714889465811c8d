package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/store"
)

// SQLiteUserStore implements store.UserStore on SQLite.
type SQLiteUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSQLiteUserStore creates a user store over db. It panics if db is nil.
func NewSQLiteUserStore(db store.DBTX, logger *slog.Logger) *SQLiteUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*SQLiteUserStore)(nil)

const userColumns = `id, username, password_hash, role, created_at, updated_at`

// Create implements store.UserStore.Create.
func (s *SQLiteUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.HashedPassword, string(user.Role),
		toMicros(user.CreatedAt), toMicros(user.UpdatedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("username already taken", slog.String("user_id", user.ID.String()))
			return store.ErrUsernameExists
		}
		log.Error("failed to insert user",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *SQLiteUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return s.scanUser(ctx, row)
}

// GetByUsername implements store.UserStore.GetByUsername.
func (s *SQLiteUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return s.scanUser(ctx, row)
}

// Update implements store.UserStore.Update.
func (s *SQLiteUserStore) Update(ctx context.Context, user *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ?, role = ?, updated_at = ? WHERE id = ?`,
		user.Username, user.HashedPassword, string(user.Role), toMicros(user.UpdatedAt), user.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrUsernameExists
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update user",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return checkRowsAffected(res, store.ErrUserNotFound)
}

// Delete implements store.UserStore.Delete.
func (s *SQLiteUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return MapError(err)
	}
	return checkRowsAffected(res, store.ErrUserNotFound)
}

// WithTx implements store.UserStore.WithTx.
func (s *SQLiteUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &SQLiteUserStore{db: tx, logger: s.logger}
}

func (s *SQLiteUserStore) scanUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	var (
		u                    domain.User
		role                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.HashedPassword, &role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read user",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = fromMicros(createdAt)
	u.UpdatedAt = fromMicros(updatedAt)
	return &u, nil
}

func checkRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Timestamps are stored as microseconds since the Unix epoch, which covers
// every year a due date may name. Nanoseconds overflow int64 after 2262.
func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(n int64) time.Time {
	return time.UnixMicro(n).UTC()
}
