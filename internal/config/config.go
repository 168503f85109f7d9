package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Loan      LoanConfig      `mapstructure:"loan" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"`
	Task      TaskConfig      `mapstructure:"task"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// Debug records loan history for every user, staff included.
	Debug   bool   `mapstructure:"debug"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver is the database/sql driver name: "pgx" or "sqlite".
	Driver                 string `mapstructure:"driver" validate:"required,oneof=pgx sqlite"`
	URL                    string `mapstructure:"url" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
	BusyTimeoutMS          int    `mapstructure:"busy_timeout_ms" validate:"gte=0"`
}

// LoanConfig holds the timing and history rules of the loan engine.
type LoanConfig struct {
	CooldownMinutes int    `mapstructure:"cooldown_minutes" validate:"gte=0"`
	GrantRounding   string `mapstructure:"grant_rounding" validate:"required,oneof=up down none"`
	ReturnRounding  string `mapstructure:"return_rounding" validate:"required,oneof=up down none"`
	// ExcludeStaffFromStats leaves loans by library staff out of the history.
	ExcludeStaffFromStats bool `mapstructure:"exclude_staff_from_stats"`
	// ExcludedUsers are left out of the history regardless of role.
	ExcludedUsers []string `mapstructure:"excluded_users"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	// LoginRatePerMinute bounds login attempts per client address.
	LoginRatePerMinute int `mapstructure:"login_rate_per_minute" validate:"required,gt=0"`
	LoginBurst         int `mapstructure:"login_burst" validate:"required,gt=0"`
}

// MailConfig configures the loan notification email.
type MailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port        int    `mapstructure:"port" validate:"gt=0,lt=65536"`
	Sender      string `mapstructure:"sender" validate:"required_if=Enabled true,omitempty,email"`
	FeedbackURL string `mapstructure:"feedback_url" validate:"omitempty,url"`
}

// TaskConfig configures the background worker pool.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	// MaxAttempts bounds how often a failing email is sent again.
	MaxAttempts       int `mapstructure:"max_attempts" validate:"gt=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// CatalogConfig configures the catalog lookup used when items are added.
// An empty BaseURL selects the static lookup.
type CatalogConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// TelemetryConfig configures tracing and the request usage window.
type TelemetryConfig struct {
	TracingEnabled     bool   `mapstructure:"tracing_enabled"`
	OTLPEndpoint       string `mapstructure:"otlp_endpoint"`
	ServiceName        string `mapstructure:"service_name" validate:"required"`
	UsageWindowMinutes int    `mapstructure:"usage_window_minutes" validate:"gt=0"`
}
