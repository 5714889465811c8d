package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "service-test-secret-that-is-at-least-32-chars"

// testClock is a settable clock shared by a test's services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db     *sql.DB
	users  store.UserStore
	tasks  store.TaskStore
	clock  *testClock
	tokens auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   testSecret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	})
	require.NoError(t, err)

	return &testEnv{
		db:     db,
		users:  sqlite.NewSQLiteUserStore(db, nil),
		tasks:  sqlite.NewSQLiteTaskStore(db, nil),
		clock:  newTestClock(),
		tokens: tokens,
	}
}

func (e *testEnv) userService(t *testing.T) *UserServiceImpl {
	t.Helper()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	svc, err := NewUserService(UserServiceDeps{
		DB:           e.db,
		Users:        e.users,
		Tokens:       e.tokens,
		Hasher:       hasher,
		Verifier:     hasher,
		QueryTimeout: 5 * time.Second,
		Clock:        e.clock.Now,
	})
	require.NoError(t, err)
	return svc
}

func (e *testEnv) taskService(t *testing.T, cfg TaskServiceConfig) *TaskServiceImpl {
	t.Helper()
	return e.taskServiceWith(t, e.tasks, cfg)
}

func (e *testEnv) taskServiceWith(t *testing.T, tasks store.TaskStore, cfg TaskServiceConfig) *TaskServiceImpl {
	t.Helper()
	svc, err := NewTaskService(tasks, nil, cfg, e.clock.Now, nil)
	require.NoError(t, err)
	return svc
}

// principal stores a user and returns its principal.
func (e *testEnv) principal(t *testing.T, username string) Principal {
	t.Helper()
	now := e.clock.Now()
	u := &domain.User{
		ID:             uuid.New(),
		Username:       username,
		HashedPassword: "$2a$04$unusedunusedunusedunusedunusedunusedunusedunusedunuse",
		Role:           domain.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return Principal{UserID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }
