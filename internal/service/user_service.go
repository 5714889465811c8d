package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/phrazzld/todo-api/internal/store"
)

// AuthResult is a freshly issued token pair for a user.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserService provides registration, login and account operations.
type UserService interface {
	// Register creates a user and logs them in.
	// Returns store.ErrUsernameExists if the normalized username is taken.
	Register(ctx context.Context, username, password string) (*AuthResult, error)

	// Authenticate checks credentials and issues tokens.
	// Returns ErrInvalidCredentials for an unknown user or a wrong password.
	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)

	// ChangePassword replaces the password after checking the current one.
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// DeleteAccount removes the user and every task they own after checking
	// the current password. Outstanding refresh tokens stop working.
	DeleteAccount(ctx context.Context, userID uuid.UUID, currentPassword string) error
}

// UserServiceDeps bundles the collaborators of UserServiceImpl.
type UserServiceDeps struct {
	DB           *sql.DB
	Users        store.UserStore
	Tokens       auth.JWTService
	Hasher       auth.PasswordHasher
	Verifier     auth.PasswordVerifier
	QueryTimeout time.Duration
	Clock        Clock
	Logger       *slog.Logger
}

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	db           *sql.DB
	users        store.UserStore
	tokens       auth.JWTService
	hasher       auth.PasswordHasher
	verifier     auth.PasswordVerifier
	queryTimeout time.Duration
	clock        Clock
	logger       *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService. DB, Users, Tokens, Hasher and
// Verifier are required.
func NewUserService(deps UserServiceDeps) (*UserServiceImpl, error) {
	if deps.DB == nil || deps.Users == nil || deps.Tokens == nil || deps.Hasher == nil || deps.Verifier == nil {
		return nil, errors.New("user service: db, users, tokens, hasher and verifier are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &UserServiceImpl{
		db:           deps.DB,
		users:        deps.Users,
		tokens:       deps.Tokens,
		hasher:       deps.Hasher,
		verifier:     deps.Verifier,
		queryTimeout: deps.QueryTimeout,
		clock:        deps.Clock,
		logger:       deps.Logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register implements UserService.
func (s *UserServiceImpl) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(username, password, s.clock.now())
	if err != nil {
		log.Debug("rejected registration", slog.String("error", err.Error()))
		return nil, err
	}

	user.HashedPassword, err = s.hasher.Hash(user.Password)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Password = ""

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.users.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			log.Debug("attempted to register an existing username", slog.String("username", user.Username))
		} else {
			log.Error("failed to save user", slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to create user: %w", store.MapUnavailable(err))
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return s.issue(ctx, user)
}

// Authenticate implements UserService.
func (s *UserServiceImpl) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.users.GetByUsername(ctx, domain.NormalizeUsername(username))
	if errors.Is(err, store.ErrUserNotFound) {
		// Spend the same bcrypt time as a real comparison.
		_ = s.verifier.Compare(s.timingHash(), password)
		log.Debug("login for unknown username")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load user for login", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to authenticate: %w", store.MapUnavailable(err))
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// Refresh implements UserService.
func (s *UserServiceImpl) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		logger.FromContextOrDefault(ctx, s.logger).Debug("refresh token for deleted user",
			slog.String("user_id", claims.UserID.String()))
		return nil, auth.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh tokens: %w", store.MapUnavailable(err))
	}
	return s.issue(ctx, user)
}

// ChangePassword implements UserService.
func (s *UserServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.users.WithTx(tx)

		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.verifier.Compare(user.HashedPassword, currentPassword); err != nil {
			return ErrInvalidCredentials
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		user.HashedPassword = hash
		user.UpdatedAt = s.clock.now()
		return txStore.Update(ctx, user)
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Error("failed to change password",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
		}
		return fmt.Errorf("failed to change password: %w", store.MapUnavailable(err))
	}

	log.Info("password changed", slog.String("user_id", userID.String()))
	return nil
}

// GetUser implements UserService.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", store.MapUnavailable(err))
	}
	return user, nil
}

// DeleteAccount implements UserService.
func (s *UserServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID, currentPassword string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.users.WithTx(tx)

		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.verifier.Compare(user.HashedPassword, currentPassword); err != nil {
			return ErrInvalidCredentials
		}
		// Tasks go with the user through ON DELETE CASCADE.
		return txStore.Delete(ctx, userID)
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Error("failed to delete account",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
		}
		return fmt.Errorf("failed to delete account: %w", store.MapUnavailable(err))
	}

	log.Info("account deleted", slog.String("user_id", userID.String()))
	return nil
}

func (s *UserServiceImpl) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	access, expiresAt, err := s.tokens.GenerateToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// timingHash returns a hash of a throwaway password used to equalize
// login latency for unknown usernames.
func (s *UserServiceImpl) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("timing-equalization-password")
	})
	return s.dummyHash
}

func (s *UserServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
