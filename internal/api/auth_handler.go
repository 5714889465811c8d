package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users service.UserService, logger *slog.Logger) *AuthHandler {
	if users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("users cannot be nil for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	res, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		UserID:       res.User.ID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.Format(time.RFC3339),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	res, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("user logged in",
		slog.String("user_id", res.User.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID:       res.User.ID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.Format(time.RFC3339),
	})
}

// RefreshToken handles POST /auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	res, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, ok := requirePrincipal(w, r, log)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), p.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// ChangePassword handles PUT /auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, ok := requirePrincipal(w, r, log)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to change password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount handles DELETE /auth/me.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	p, ok := requirePrincipal(w, r, log)
	if !ok {
		return
	}

	var req DeleteAccountRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	if err := h.users.DeleteAccount(r.Context(), p.UserID, req.CurrentPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
