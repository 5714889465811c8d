package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the user and role
	// and returns it with the expiry it carries.
	GenerateToken(ctx context.Context, userID uuid.UUID, role domain.Role) (string, time.Time, error)

	// ValidateToken validates an access token and extracts its claims.
	// Returns ErrExpiredToken, ErrInvalidToken or ErrWrongTokenType on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed JWT refresh token.
	// Refresh tokens live longer and are only accepted by ValidateRefreshToken.
	GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateRefreshToken validates a refresh token and extracts its claims.
	// Returns ErrExpiredRefreshToken, ErrInvalidRefreshToken or ErrWrongTokenType on failure.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Role is the user's role at issue time. Empty on refresh tokens.
	Role domain.Role `json:"role,omitempty"`

	// TokenType is TokenTypeAccess or TokenTypeRefresh.
	TokenType string `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
