package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/redact"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/service/auth"
)

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	logger     *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, logger *slog.Logger) *AuthMiddleware {
	if jwtService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("jwtService cannot be nil for AuthMiddleware")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger.With(slog.String("component", "auth_middleware")),
	}
}

// Authenticate validates the bearer token in the Authorization header and
// adds the resulting service.Principal to the request context. Every failure,
// including unexpected verifier errors, is answered with 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), m.logger)

		token, err := bearerToken(r)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, err.Error(), nil)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			message := "Invalid token"
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				message = "Token expired"
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrWrongTokenType):
			default:
				log.Error("failed to validate token", slog.String("error", redact.Error(err)))
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, message, err)
			return
		}

		principal := service.Principal{UserID: claims.UserID, Role: claims.Role}
		ctx := shared.WithPrincipal(r.Context(), principal)
		ctx = logger.WithLogger(ctx, logger.FromContextOrDefault(ctx, m.logger).
			With(slog.String("user_id", claims.UserID.String())))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type headerError string

func (e headerError) Error() string { return string(e) }

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", headerError("Authorization header required")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" || strings.Contains(token, " ") {
		return "", headerError("Invalid authorization format")
	}
	return token, nil
}
