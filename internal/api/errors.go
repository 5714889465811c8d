package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/todo-api/internal/api/shared"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/phrazzld/todo-api/internal/store"
)

// RetryAfter is the Retry-After hint sent with 503 responses.
const RetryAfter = 5 * time.Second

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case store.IsDuplicateError(err),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	// Availability errors
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Field == "" {
			return "Invalid request: " + ve.Message
		}
		return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Message)

	case errors.Is(err, domain.ErrInvalidTransition):
		return "Invalid status transition"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, service.ErrForbidden):
		return "You do not own this task"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case store.IsNotFoundError(err):
		return "Resource not found"

	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"

	case errors.Is(err, store.ErrConflict):
		return "The task was modified concurrently, reload and retry"

	case store.IsDuplicateError(err):
		return "Resource already exists"

	case errors.Is(err, store.ErrStorageUnavailable):
		return "Service temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err: status from
// MapErrorToStatusCode, a safe message, plus the offending field for
// validation errors, the allowed set for rejected transitions and a
// Retry-After header when storage is unavailable. fallback replaces the
// generic message on 500s.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		opts = append(opts, shared.WithField(ve.Field))
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		opts = append(opts, shared.WithAllowedTransitions(te.Allowed))
	}
	if status == http.StatusServiceUnavailable {
		opts = append(opts, shared.WithRetryAfter(RetryAfter))
	}
	if status == http.StatusForbidden || errors.Is(err, service.ErrInvalidCredentials) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError writes a 400 for a request DTO that failed struct
// validation or JSON decoding.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var opts []shared.ResponseOption
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		opts = append(opts, shared.WithField(fieldErrs[0].Field()))
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err, opts...)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Invalid request format"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
