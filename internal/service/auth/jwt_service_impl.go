package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
)

// minSecretLength is the shortest HMAC secret accepted.
const minSecretLength = 32

// hmacJWTService is an implementation of JWTService using HMAC-SHA256 signing.
type hmacJWTService struct {
	signingKey           []byte
	tokenLifetime        time.Duration
	refreshTokenLifetime time.Duration
	timeFunc             func() time.Time // Injectable for testing
	clockSkew            time.Duration    // Leeway applied to exp/nbf/iat checks
}

// jwtCustomClaims defines the structure of JWT claims we use
type jwtCustomClaims struct {
	UserID    uuid.UUID   `json:"uid"`
	Role      domain.Role `json:"role,omitempty"`
	TokenType string      `json:"type"`
	jwt.RegisteredClaims
}

// Ensure hmacJWTService implements JWTService interface
var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA256 signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if cfg.TokenLifetimeMinutes <= 0 || cfg.RefreshTokenLifetimeMinutes <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	return newHMACJWTService(cfg.JWTSecret, cfg.TokenLifetime(), cfg.RefreshTokenLifetime(), time.Now), nil
}

func newHMACJWTService(secret string, lifetime, refreshLifetime time.Duration, now func() time.Time) *hmacJWTService {
	return &hmacJWTService{
		signingKey:           []byte(secret),
		tokenLifetime:        lifetime,
		refreshTokenLifetime: refreshLifetime,
		timeFunc:             now,
		clockSkew:            2 * time.Minute,
	}
}

// GenerateToken creates a signed JWT access token with user claims.
func (s *hmacJWTService) GenerateToken(ctx context.Context, userID uuid.UUID, role domain.Role) (string, time.Time, error) {
	return s.sign(ctx, userID, role, TokenTypeAccess, s.timeFunc().Add(s.tokenLifetime))
}

// GenerateRefreshToken creates a signed JWT refresh token.
func (s *hmacJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, _, err := s.sign(ctx, userID, "", TokenTypeRefresh, s.timeFunc().Add(s.refreshTokenLifetime))
	return token, err
}

// ValidateToken validates a JWT access token and returns the claims if valid.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parse(ctx, tokenString, TokenTypeAccess)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, ErrWrongTokenType):
		return nil, ErrWrongTokenType
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return nil, ErrTokenNotYetValid
	default:
		return nil, ErrInvalidToken
	}
}

// ValidateRefreshToken validates a JWT refresh token and returns the claims if valid.
func (s *hmacJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parse(ctx, tokenString, TokenTypeRefresh)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, ErrWrongTokenType):
		return nil, ErrWrongTokenType
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredRefreshToken
	default:
		return nil, ErrInvalidRefreshToken
	}
}

func (s *hmacJWTService) sign(
	ctx context.Context,
	userID uuid.UUID,
	role domain.Role,
	tokenType string,
	expiresAt time.Time,
) (string, time.Time, error) {
	now := s.timeFunc()
	claims := jwtCustomClaims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign JWT",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("token_type", tokenType))
		return "", time.Time{}, fmt.Errorf("failed to sign %s token with HMAC-SHA256: %w", tokenType, err)
	}
	return signed, claims.ExpiresAt.UTC(), nil
}

// parse verifies signature, algorithm and time claims, then checks the
// token type. Errors are the raw jwt errors or ErrWrongTokenType.
func (s *hmacJWTService) parse(ctx context.Context, tokenString, wantType string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		log.Debug("token validation failed",
			slog.String("token_type", wantType),
			slog.String("error", err.Error()))
		return nil, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		log.Debug("token validation failed: invalid claims", slog.String("token_type", wantType))
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != wantType {
		log.Debug("token validation failed: wrong token type",
			slog.String("expected", wantType),
			slog.String("actual", claims.TokenType))
		return nil, ErrWrongTokenType
	}

	return &Claims{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenType: claims.TokenType,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
