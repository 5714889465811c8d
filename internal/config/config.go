package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format"       validate:"required,oneof=json text"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// Driver selects the storage backend; URL is a postgres connection string
// or a sqlite DSN / file path depending on the driver.
type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"         validate:"required,oneof=postgres sqlite"`
	URL          string        `mapstructure:"url"            validate:"required"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"  validate:"gt=0"`
	MaxOpenConns int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" validate:"gte=0,ltefield=MaxOpenConns"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gtfield=TokenLifetimeMinutes"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	LoginRatePerMinute          int    `mapstructure:"login_rate_per_minute"          validate:"gt=0"`
	LoginBurst                  int    `mapstructure:"login_burst"                    validate:"gt=0"`
}

// TasksConfig contains the business rules of the task lifecycle engine.
type TasksConfig struct {
	// AllowPastDueDates disables the "due date must not be in the past" check at creation.
	AllowPastDueDates bool `mapstructure:"allow_past_due_dates"`
	DefaultPageSize   int  `mapstructure:"default_page_size" validate:"gt=0"`
	MaxPageSize       int  `mapstructure:"max_page_size"     validate:"gtefield=DefaultPageSize"`
}

// TokenLifetime returns the access token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// RefreshTokenLifetime returns the refresh token lifetime as a duration.
func (c AuthConfig) RefreshTokenLifetime() time.Duration {
	return time.Duration(c.RefreshTokenLifetimeMinutes) * time.Minute
}
