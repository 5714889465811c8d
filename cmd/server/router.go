package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/todo-api/internal/api"
	apiMiddleware "github.com/phrazzld/todo-api/internal/api/middleware"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/store"
)

// readinessTimeout bounds the database ping behind /ready.
const readinessTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	authHandler := api.NewAuthHandler(app.userService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.logger)
	loginLimit := apiMiddleware.RateLimit(apiMiddleware.RateLimitConfig{
		RequestsPerMinute: app.config.Auth.LoginRatePerMinute,
		Burst:             app.config.Auth.LoginBurst,
	}, apiMiddleware.IPKeyExtractor)

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/register", authHandler.Register)
		r.With(loginLimit).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/me", authHandler.Me)
			r.Delete("/me", authHandler.DeleteAccount)
			r.Put("/password", authHandler.ChangePassword)
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/", taskHandler.CreateTask)
		r.Get("/", taskHandler.ListTasks)
		r.Get("/{id}", taskHandler.GetTask)
		r.Patch("/{id}", taskHandler.UpdateTask)
		r.Delete("/{id}", taskHandler.DeleteTask)
		r.Post("/{id}/transition", taskHandler.TransitionTask)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
	})
	r.Get("/ready", app.handleReady)

	return r
}

// handleReady reports whether the database answers a ping.
func (app *application) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		api.HandleAPIError(w, r, fmt.Errorf("%w: ping failed: %w", store.ErrStorageUnavailable, err), "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, healthResponse{Status: "ready"})
}
