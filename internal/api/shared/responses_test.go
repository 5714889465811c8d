package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	buf, log := logger.NewTestLogger(t)
	ctx := logger.WithLogger(context.WithValue(context.Background(), TraceIDKey, "trace-1"), log)
	r := httptest.NewRequest("POST", "/tasks/1/transition", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid status transition",
		errors.New("password=hunter22 leaked"),
		WithAllowedTransitions(nil), WithField("status"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid status transition", body["error"])
	assert.Equal(t, "trace-1", body["trace_id"])
	assert.Equal(t, "status", body["field"])
	assert.Equal(t, []any{}, body["allowed_transitions"], "empty set is still reported")

	logs := buf.String()
	assert.NotContains(t, logs, "hunter22")
	assert.NotContains(t, w.Body.String(), "hunter22")
}

func TestRespondWithErrorOmitsOptionalFields(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	RespondWithError(w, r, http.StatusNotFound, "Task not found")

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "allowed_transitions")
	assert.NotContains(t, body, "field")
	assert.NotContains(t, body, "trace_id")
}

func TestRespondWithRetryAfter(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable", nil,
		WithRetryAfter(1500*time.Millisecond))

	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestWithAllowedTransitionsKeepsOrder(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/", nil)
	w := httptest.NewRecorder()
	RespondWithErrorAndLog(w, r, http.StatusBadRequest, "x", nil,
		WithAllowedTransitions(domain.AllowedTransitions(domain.StatusInProgress)))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.AllowedTransitions)
	assert.Equal(t, []domain.Status{domain.StatusOpen, domain.StatusCompleted, domain.StatusCancelled}, *body.AllowedTransitions)
}
