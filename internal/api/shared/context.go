package shared

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/phrazzld/todo-api/internal/service"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// PrincipalContextKey is the context key for the authenticated service.Principal
	PrincipalContextKey ContextKey = "principal"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"
)

var (
	traceMu      sync.Mutex
	traceEntropy = ulid.Monotonic(rand.Reader, 0)
)

// SetTraceID adds a fresh trace ID to the context.
// This is useful for correlating logs and error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, NewTraceID())
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// NewTraceID returns a ULID, so trace IDs sort by creation time.
func NewTraceID() string {
	traceMu.Lock()
	defer traceMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), traceEntropy).String()
}

// WithPrincipal returns a copy of ctx carrying the authenticated caller.
func WithPrincipal(ctx context.Context, p service.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext returns the caller stored by the auth middleware.
// The boolean is false when no authenticated principal is present.
func PrincipalFromContext(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(service.Principal)
	if !ok || p.UserID == uuid.Nil {
		return service.Principal{}, false
	}
	return p, true
}
