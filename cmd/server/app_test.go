package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/todo-api/internal/api"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliceScenarioOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))

	srv.register(t, "alice")

	resp := srv.call(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := readJSON[api.AuthResponse](t, resp)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	token := login.AccessToken

	spec := srv.createTask(t, token, "write spec")
	assert.Equal(t, domain.StatusOpen, spec.Status)
	assert.Equal(t, login.UserID, spec.OwnerID)

	resp = srv.transition(t, token, spec, "in_progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	spec = readJSON[api.TaskResponse](t, resp)
	assert.Equal(t, domain.StatusInProgress, spec.Status)

	fresh := srv.createTask(t, token, "review spec")
	resp = srv.transition(t, token, fresh, "completed")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := readJSON[shared.ErrorResponse](t, resp)
	require.NotNil(t, body.AllowedTransitions)
	assert.Equal(t, []domain.Status{domain.StatusInProgress}, *body.AllowedTransitions)

	resp = srv.transition(t, token, spec, "completed")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	spec = readJSON[api.TaskResponse](t, resp)
	assert.Equal(t, domain.StatusCompleted, spec.Status)
	assert.Empty(t, spec.AllowedTransitions)

	for _, to := range []string{"open", "in_progress", "cancelled"} {
		resp = srv.transition(t, token, spec, to)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "completed is terminal")
	}

	resp = srv.call(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", readJSON[api.UserResponse](t, resp).Username)
}

func TestTasksAreOwnerOnlyOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))

	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")
	task := srv.createTask(t, alice, "private")
	path := "/tasks/" + task.ID.String()

	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodGet, path, bob, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden,
		srv.call(t, http.MethodPatch, path, bob, map[string]string{"title": "mine"}).StatusCode)
	assert.Equal(t, http.StatusForbidden, srv.transition(t, bob, task, "in_progress").StatusCode)
	assert.Equal(t, http.StatusForbidden, srv.call(t, http.MethodDelete, path, bob, nil).StatusCode)

	resp := srv.call(t, http.MethodGet, "/tasks", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, readJSON[api.TaskListResponse](t, resp).Tasks)

	resp = srv.call(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "private", readJSON[api.TaskResponse](t, resp).Title)

	assert.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, path, alice, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, path, alice, nil).StatusCode)
}

func TestTasksRequireAuthentication(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))

	assert.Equal(t, http.StatusUnauthorized, srv.call(t, http.MethodGet, "/tasks", "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, srv.call(t, http.MethodGet, "/tasks", "garbage", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, srv.call(t, http.MethodGet, "/auth/me", "", nil).StatusCode)
}

func TestDeleteAccountOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))

	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")
	srv.createTask(t, alice, "goes away")
	kept := srv.createTask(t, bob, "stays")

	tests := []struct {
		name       string
		token      string
		body       any
		wantStatus int
	}{
		{"anonymous", "", map[string]string{"current_password": "correct horse"}, http.StatusUnauthorized},
		{"wrong password", alice, map[string]string{"current_password": "wrong horse"}, http.StatusUnauthorized},
		{"missing password", alice, map[string]string{}, http.StatusBadRequest},
		{"correct password", alice, map[string]string{"current_password": "correct horse"}, http.StatusNoContent},
		{"already gone", alice, map[string]string{"current_password": "correct horse"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := srv.call(t, http.MethodDelete, "/auth/me", tt.token, tt.body)
		assert.Equal(t, tt.wantStatus, resp.StatusCode, tt.name)
	}

	assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, "/auth/me", alice, nil).StatusCode)
	resp := srv.call(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = srv.call(t, http.MethodGet, "/tasks/"+kept.ID.String(), bob, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "other users keep their tasks")
}

func TestFarFutureDueDateOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))
	token := srv.register(t, "alice")

	resp := srv.call(t, http.MethodPost, "/tasks", token, map[string]string{
		"title":    "time capsule",
		"due_date": "2300-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := readJSON[api.TaskResponse](t, resp)
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)))

	resp = srv.call(t, http.MethodGet, "/tasks?due_after=2100-01-01T00:00:00Z", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := readJSON[api.TaskListResponse](t, resp)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, created.ID, list.Tasks[0].ID)
	assert.True(t, list.Tasks[0].DueDate.Equal(*created.DueDate))
}

func TestPaginationOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))
	token := srv.register(t, "pager")

	var created []api.TaskResponse
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		created = append(created, srv.createTask(t, token, title))
	}

	var seen []string
	path := "/tasks?limit=2"
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "pagination must terminate")
		resp := srv.call(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		page := readJSON[api.TaskListResponse](t, resp)
		assert.LessOrEqual(t, len(page.Tasks), 2)
		for _, task := range page.Tasks {
			seen = append(seen, task.Title)
		}
		if page.NextPage == "" {
			break
		}
		path = "/tasks?limit=2&page=" + page.NextPage
	}

	assert.Equal(t, []string{"five", "four", "three", "two", "one"}, seen)

	resp := srv.transition(t, token, created[1], "in_progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.call(t, http.MethodGet, "/tasks?status=in_progress", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	filtered := readJSON[api.TaskListResponse](t, resp)
	require.Len(t, filtered.Tasks, 1)
	assert.Equal(t, "two", filtered.Tasks[0].Title)

	resp = srv.call(t, http.MethodGet, "/tasks?q=THR", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, readJSON[api.TaskListResponse](t, resp).Tasks, 1)
}

func TestConcurrentTransitionsOverHTTP(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))
	token := srv.register(t, "racer")
	task := srv.createTask(t, token, "contested")

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/tasks/"+task.ID.String()+"/transition",
				strings.NewReader(`{"status":"in_progress"}`))
			if err != nil {
				return
			}
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := srv.Client().Do(req)
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			wins++
		case http.StatusConflict, http.StatusBadRequest:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, wins, "exactly one writer wins")

	resp := srv.call(t, http.MethodGet, "/tasks/"+task.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	final := readJSON[api.TaskResponse](t, resp)
	assert.Equal(t, domain.StatusInProgress, final.Status)
	assert.EqualValues(t, 2, final.Version)
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, testConfig(t))

	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/health", "", nil).StatusCode)
	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/ready", "", nil).StatusCode)

	require.NoError(t, srv.app.db.Close())

	resp := srv.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/health", "", nil).StatusCode)
}

func TestLoginIsRateLimited(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Auth.LoginRatePerMinute = 1
	cfg.Auth.LoginBurst = 2
	srv := newTestServer(t, cfg)

	srv.register(t, "carol")

	resp := srv.call(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "carol",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.call(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "carol",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp = srv.call(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "refresh is not behind the login limiter")
}

func TestNewApplicationRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	srv := newTestServer(t, cfg)

	bad := *cfg
	bad.Database.Driver = "oracle"
	_, err := newApplication(&bad, srv.app.logger, srv.app.db, nil)
	assert.Error(t, err)

	_, err = newApplication(cfg, srv.app.logger, nil, nil)
	assert.Error(t, err)
}

func TestStartHTTPServerStopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Server.Port = 0
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.app.startHTTPServer(ctx, http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
