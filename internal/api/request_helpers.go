package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/service/auth"
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", nil)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// requirePrincipal returns the authenticated caller, writing a 401 if the
// auth middleware did not run.
func requirePrincipal(w http.ResponseWriter, r *http.Request, log *slog.Logger) (service.Principal, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		log.Warn("principal not found in request context")
		HandleAPIError(w, r, auth.ErrMissingToken, "")
		return service.Principal{}, false
	}
	return p, true
}

// handlePrincipalAndPathUUID extracts both the caller and the {id} path
// parameter, writing an error response if either is missing or invalid.
func handlePrincipalAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (service.Principal, uuid.UUID, bool) {
	p, ok := requirePrincipal(w, r, log)
	if !ok {
		return service.Principal{}, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		log.Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return service.Principal{}, uuid.Nil, false
	}

	return p, id, true
}

// parseListQuery reads status, due_after, due_before, q, limit and page.
// status accepts a comma-separated list and may be repeated.
func parseListQuery(r *http.Request) (service.ListTasksInput, error) {
	q := r.URL.Query()
	var in service.ListTasksInput

	for _, raw := range q["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s, err := domain.ParseStatus(part)
			if err != nil {
				return in, err
			}
			in.Filter.Statuses = append(in.Filter.Statuses, s)
		}
	}

	var err error
	if in.Filter.DueAfter, err = parseTimeParam(q.Get("due_after"), "due_after"); err != nil {
		return in, err
	}
	if in.Filter.DueBefore, err = parseTimeParam(q.Get("due_before"), "due_before"); err != nil {
		return in, err
	}
	in.Filter.Query = q.Get("q")

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return in, domain.NewValidationError("limit", "must be a positive integer", nil)
		}
		in.PageSize = n
	}
	in.PageToken = q.Get("page")

	return in, nil
}

func parseTimeParam(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be an RFC 3339 timestamp", nil)
	}
	return &t, nil
}
