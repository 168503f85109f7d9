package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "DIBS"

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.debug", false)

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)
	v.SetDefault("database.busy_timeout_ms", 5000)

	v.SetDefault("loan.cooldown_minutes", 30)
	v.SetDefault("loan.grant_rounding", "up")
	v.SetDefault("loan.return_rounding", "down")
	v.SetDefault("loan.exclude_staff_from_stats", true)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.login_rate_per_minute", 5)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("mail.port", 25)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.max_attempts", 3)
	v.SetDefault("task.retry_delay_seconds", 2)

	v.SetDefault("catalog.timeout_seconds", 10)

	v.SetDefault("telemetry.service_name", "dibs-api")
	v.SetDefault("telemetry.usage_window_minutes", 60)
}

// bindEnvs registers keys without defaults so AutomaticEnv sees them during
// Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"server.base_url",
		"database.url",
		"loan.excluded_users",
		"auth.jwt_secret",
		"mail.enabled",
		"mail.host",
		"mail.sender",
		"mail.feedback_url",
		"catalog.base_url",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}
