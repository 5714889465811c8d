package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/mocks"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/phrazzld/todo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(h *AuthHandler, p *service.Principal) http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.RefreshToken)
	r.Group(func(r chi.Router) {
		if p != nil {
			r.Use(asPrincipal(*p))
		}
		r.Get("/auth/me", h.Me)
		r.Put("/auth/password", h.ChangePassword)
		r.Delete("/auth/me", h.DeleteAccount)
	})
	return r
}

func TestRegister(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	expires := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	users := &mocks.MockUserService{
		RegisterFn: func(ctx context.Context, username, password string) (*service.AuthResult, error) {
			if username == "taken" {
				return nil, store.ErrUsernameExists
			}
			if username == "bad name" {
				return nil, domain.NewValidationError("username", "contains invalid characters", nil)
			}
			return &service.AuthResult{
				User:         &domain.User{ID: userID, Username: username},
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpiresAt:    expires,
			}, nil
		},
	}
	router := authRouter(NewAuthHandler(users, nil), nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"success", `{"username":"alice","password":"password123"}`, http.StatusCreated, ""},
		{"duplicate", `{"username":"taken","password":"password123"}`, http.StatusConflict, "Username already exists"},
		{"short password", `{"username":"alice","password":"short"}`, http.StatusBadRequest, "Invalid password: too short"},
		{"missing username", `{"password":"password123"}`, http.StatusBadRequest, "Invalid username: required field"},
		{"domain rejection", `{"username":"bad name","password":"password123"}`, http.StatusBadRequest,
			"Invalid username: contains invalid characters"},
		{"malformed json", `{"username":`, http.StatusBadRequest, "Invalid request format"},
		{"unknown field", `{"username":"alice","password":"password123","admin":true}`, http.StatusBadRequest,
			"Invalid request format"},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, router, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[shared.ErrorResponse](t, rec).Error)
				return
			}
			resp := decode[AuthResponse](t, rec)
			assert.Equal(t, userID, resp.UserID)
			assert.Equal(t, "access", resp.AccessToken)
			assert.Equal(t, "2025-06-01T10:00:00Z", resp.ExpiresAt)
		})
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	users := &mocks.MockUserService{
		AuthenticateFn: func(ctx context.Context, username, password string) (*service.AuthResult, error) {
			switch {
			case username == "down":
				return nil, store.ErrStorageUnavailable
			case password != "password123":
				return nil, service.ErrInvalidCredentials
			}
			return &service.AuthResult{
				User:         &domain.User{ID: userID},
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now(),
			}, nil
		},
	}
	router := authRouter(NewAuthHandler(users, nil), nil)

	rec := do(t, router, http.MethodPost, "/auth/login", `{"username":"alice","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AuthResponse](t, rec)
	assert.Equal(t, userID, resp.UserID)
	assert.Equal(t, "refresh", resp.RefreshToken)

	rec = do(t, router, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[shared.ErrorResponse](t, rec).Error)

	rec = do(t, router, http.MethodPost, "/auth/login", `{"username":"down","password":"password123"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = do(t, router, http.MethodPost, "/auth/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshTokenHandler(t *testing.T) {
	t.Parallel()

	users := &mocks.MockUserService{
		RefreshFn: func(ctx context.Context, token string) (*service.AuthResult, error) {
			if token != "valid-refresh" {
				return nil, auth.ErrInvalidRefreshToken
			}
			return &service.AuthResult{
				User:         &domain.User{ID: uuid.New()},
				AccessToken:  "new-access",
				RefreshToken: "new-refresh",
				ExpiresAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	router := authRouter(NewAuthHandler(users, nil), nil)

	rec := do(t, router, http.MethodPost, "/auth/refresh", `{"refresh_token":"valid-refresh"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[RefreshTokenResponse](t, rec)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.Equal(t, "new-refresh", resp.RefreshToken)

	rec = do(t, router, http.MethodPost, "/auth/refresh", `{"refresh_token":"stolen"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decode[shared.ErrorResponse](t, rec).Error)

	rec = do(t, router, http.MethodPost, "/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeAndChangePassword(t *testing.T) {
	t.Parallel()

	p := service.Principal{UserID: uuid.New(), Role: domain.RoleUser}
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var changedFor uuid.UUID
	users := &mocks.MockUserService{
		GetUserFn: func(ctx context.Context, id uuid.UUID) (*domain.User, error) {
			return &domain.User{ID: id, Username: "alice", Role: domain.RoleUser, CreatedAt: created,
				HashedPassword: "$2a$10$secret"}, nil
		},
		ChangePasswordFn: func(ctx context.Context, id uuid.UUID, current, next string) error {
			if current != "password123" {
				return service.ErrInvalidCredentials
			}
			changedFor = id
			return nil
		},
	}
	router := authRouter(NewAuthHandler(users, nil), &p)

	rec := do(t, router, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	me := decode[UserResponse](t, rec)
	assert.Equal(t, p.UserID, me.ID)
	assert.Equal(t, "alice", me.Username)

	rec = do(t, router, http.MethodPut, "/auth/password", `{"current_password":"password123","new_password":"new-password"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, p.UserID, changedFor)

	rec = do(t, router, http.MethodPut, "/auth/password", `{"current_password":"nope","new_password":"new-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	anon := authRouter(NewAuthHandler(users, nil), nil)
	rec = do(t, anon, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	p := service.Principal{UserID: uuid.New(), Role: domain.RoleUser}
	var deleted []uuid.UUID
	users := &mocks.MockUserService{
		DeleteAccountFn: func(ctx context.Context, id uuid.UUID, current string) error {
			switch current {
			case "password123":
				deleted = append(deleted, id)
				return nil
			case "slow-db":
				return store.ErrStorageUnavailable
			default:
				return service.ErrInvalidCredentials
			}
		},
	}
	router := authRouter(NewAuthHandler(users, nil), &p)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"correct password", `{"current_password":"password123"}`, http.StatusNoContent},
		{"wrong password", `{"current_password":"nope"}`, http.StatusUnauthorized},
		{"missing password", `{}`, http.StatusBadRequest},
		{"malformed body", `{"current_password":`, http.StatusBadRequest},
		{"storage down", `{"current_password":"slow-db"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := do(t, router, http.MethodDelete, "/auth/me", tt.body)
		assert.Equal(t, tt.wantStatus, rec.Code, tt.name)
	}
	assert.Equal(t, []uuid.UUID{p.UserID}, deleted)

	anon := authRouter(NewAuthHandler(users, nil), nil)
	rec := do(t, anon, http.MethodDelete, "/auth/me", `{"current_password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewAuthHandlerPanicsWithoutService(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewAuthHandler(nil, nil) })
}
