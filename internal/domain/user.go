package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Role is the coarse-grained permission class of a user.
type Role string

// Known roles. New registrations always get RoleUser.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Username and password limits. The password maximum is bcrypt's input limit.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 100
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// User represents a registered account.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Password       string    `json:"-"` // Plaintext, only set between registration and hashing
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a user with a fresh ID and RoleUser. The username is
// normalized with NormalizeUsername. The plaintext password is kept on the
// struct and must be hashed by the caller before the user is stored.
func NewUser(username, password string, now time.Time) (*User, error) {
	user := &User{
		ID:        uuid.New(),
		Username:  NormalizeUsername(username),
		Password:  password,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// NormalizeUsername trims surrounding space and lower-cases the name so that
// uniqueness is case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if err := ValidateUsername(u.Username); err != nil {
		return err
	}
	if u.Password != "" {
		if err := ValidatePassword(u.Password); err != nil {
			return err
		}
	} else if u.HashedPassword == "" {
		return NewValidationError("password", "cannot be empty", nil)
	}
	if u.Role != RoleUser && u.Role != RoleAdmin {
		return NewValidationError("role", "is not a known role", nil)
	}
	if u.UpdatedAt.Before(u.CreatedAt) {
		return NewValidationError("updated_at", "cannot precede created_at", nil)
	}
	return nil
}

// ValidateUsername checks length and allowed characters: letters, digits and
// the punctuation ". _ - @" so that e-mail addresses work as usernames.
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < MinUsernameLength {
		return NewValidationError("username", "is too short", nil)
	}
	if n > MaxUsernameLength {
		return NewValidationError("username", "is too long", nil)
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._-@", r) {
			continue
		}
		return NewValidationError("username", "contains invalid characters", nil)
	}
	return nil
}

// ValidatePassword enforces the length bounds on a plaintext password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "is too short", nil)
	}
	if len(password) > MaxPasswordLength {
		return NewValidationError("password", "is too long", nil)
	}
	return nil
}
