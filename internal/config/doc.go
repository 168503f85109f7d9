// Package config loads and validates the service configuration from
// DIBS_-prefixed environment variables and an optional config.yaml.
package config
