// Package config implements spec.md §6.3's external configuration
// collaborator: environment variable loading, validation, and redacted
// startup logging, in the teacher's ValidateEnv style.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration for the lobby server.
type Config struct {
	// Required
	GRPCAddr  string
	RedisAddr string

	// Optional, with defaults
	GoEnv    string
	LogLevel string

	RedisPassword string

	CommonRoomCapacity  int
	PrivateRoomCapacity int

	SessionSinkCapacity  int
	SessionSendTimeoutMS int
	RoomCleanupGraceMS   int

	// RateLimitIPFormatted and RateLimitUserFormatted are ulule/limiter
	// "<limit>-<period>" rate strings (e.g. "100-M" = 100 per minute).
	RateLimitIPFormatted   string
	RateLimitUserFormatted string
}

// ValidateEnv validates all required environment variables and returns a
// Config, or an error describing every validation failure found.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.GRPCAddr = os.Getenv("GRPC_ADDR")
	if cfg.GRPCAddr == "" {
		errs = append(errs, "GRPC_ADDR is required")
	} else if !isValidHostPort(cfg.GRPCAddr) {
		errs = append(errs, fmt.Sprintf("GRPC_ADDR must be in format 'host:port' (got '%s')", cfg.GRPCAddr))
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required")
	} else if !isValidHostPort(cfg.RedisAddr) {
		errs = append(errs, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	var err error
	if cfg.CommonRoomCapacity, err = getEnvIntOrDefault("COMMON_ROOM_CAPACITY", 5); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.PrivateRoomCapacity, err = getEnvIntOrDefault("PRIVATE_ROOM_CAPACITY", 2); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.SessionSinkCapacity, err = getEnvIntOrDefault("SESSION_SINK_CAPACITY", 128); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.SessionSendTimeoutMS, err = getEnvIntOrDefault("SESSION_SEND_TIMEOUT_MS", 100); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.RoomCleanupGraceMS, err = getEnvIntOrDefault("ROOM_CLEANUP_GRACE_MS", 0); err != nil {
		errs = append(errs, err.Error())
	}

	cfg.RateLimitIPFormatted = getEnvOrDefault("RATE_LIMIT_IP", "100-M")
	cfg.RateLimitUserFormatted = getEnvOrDefault("RATE_LIMIT_USER", "1000-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)
	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port".
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}
	return parts[0] != ""
}

func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated successfully")
	slog.Info("configuration",
		"grpc_addr", cfg.GRPCAddr,
		"redis_addr", cfg.RedisAddr,
		"redis_password", redactSecret(cfg.RedisPassword),
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"common_room_capacity", cfg.CommonRoomCapacity,
		"private_room_capacity", cfg.PrivateRoomCapacity,
		"session_sink_capacity", cfg.SessionSinkCapacity,
		"session_send_timeout_ms", cfg.SessionSendTimeoutMS,
		"room_cleanup_grace_ms", cfg.RoomCleanupGraceMS,
		"rate_limit_ip", cfg.RateLimitIPFormatted,
		"rate_limit_user", cfg.RateLimitUserFormatted,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got '%s')", key, raw)
	}
	return n, nil
}

// redactSecret redacts a secret by showing only the first 8 characters.
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
