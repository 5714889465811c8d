package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/todo-api/internal/api"
	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "error",
			LogFormat:       "json",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:       driverSQLite,
			URL:          filepath.Join(t.TempDir(), "todo.db"),
			QueryTimeout: 5 * time.Second,
			MaxOpenConns: 1,
		},
		Auth: config.AuthConfig{
			JWTSecret:                   testSecret,
			TokenLifetimeMinutes:        60,
			RefreshTokenLifetimeMinutes: 1440,
			BCryptCost:                  4,
			LoginRatePerMinute:          1000,
			LoginBurst:                  1000,
		},
		Tasks: config.TasksConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// steppingClock advances one second per reading so creation times are
// distinct and ordered.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testServer struct {
	*httptest.Server
	app *application
}

// newTestServer migrates a fresh SQLite database and serves the full router.
func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	log := logger.New(io.Discard, cfg.Server.LogLevel, cfg.Server.LogFormat)
	ctx := context.Background()

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, runMigrations(ctx, db, cfg.Database.Driver, log, io.Discard, "up"))

	app, err := newApplication(cfg, log, db, newSteppingClock().Now)
	require.NoError(t, err)

	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: app}
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	resp := s.call(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return readJSON[api.AuthResponse](t, resp).AccessToken
}

func (s *testServer) createTask(t *testing.T, token, title string) api.TaskResponse {
	t.Helper()
	resp := s.call(t, http.MethodPost, "/tasks", token, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return readJSON[api.TaskResponse](t, resp)
}

func (s *testServer) transition(t *testing.T, token string, task api.TaskResponse, to string) *http.Response {
	t.Helper()
	return s.call(t, http.MethodPost, "/tasks/"+task.ID.String()+"/transition", token, map[string]string{"status": to})
}

func readJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
