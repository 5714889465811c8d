package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/stretchr/testify/require"
)

// asPrincipal injects p the way the auth middleware would.
func asPrincipal(p service.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.WithPrincipal(r.Context(), p)))
		})
	}
}

func taskRouter(h *TaskHandler, p service.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(asPrincipal(p))
	r.Post("/tasks", h.CreateTask)
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/{id}", h.GetTask)
	r.Patch("/tasks/{id}", h.UpdateTask)
	r.Post("/tasks/{id}/transition", h.TransitionTask)
	r.Delete("/tasks/{id}", h.DeleteTask)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
