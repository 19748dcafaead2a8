package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"elpa-backend/internal/infrastructure/database"
)

// strictEnv parse env và gom lỗi, khác getEnvInt là không fallback âm thầm
type strictEnv struct {
	errs []error
}

func (e *strictEnv) intValue(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

func (e *strictEnv) durationValue(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

// LoadDatabaseConfig đọc tham số PostgreSQL (DB_*). Chỉ gọi khi DB_DRIVER=postgres.
func LoadDatabaseConfig() (*database.DBConfig, error) {
	env := &strictEnv{}

	cfg := &database.DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     env.intValue("DB_PORT", 5432),
		Username: getEnv("DB_USER", "elpa"),
		Password: getEnv("DB_PASSWORD", "secret"),
		DBName:   getEnv("DB_NAME", "elpa_dev"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),

		MaxConns:          int32(env.intValue("DB_MAX_CONNECTIONS", 20)),
		MinConns:          int32(env.intValue("DB_MIN_CONNECTIONS", 2)),
		MaxConnLifetime:   env.durationValue("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		MaxConnIdleTime:   env.durationValue("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
		HealthCheckPeriod: env.durationValue("DB_HEALTH_CHECK_PERIOD", time.Minute),

		MaxRetries:     env.intValue("DB_MAX_RETRIES", 5),
		RetryDelay:     env.durationValue("DB_RETRY_DELAY", time.Second),
		ConnectTimeout: env.durationValue("DB_CONNECT_TIMEOUT", 10*time.Second),
	}
	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}

	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNECTIONS (%d) exceeds DB_MAX_CONNECTIONS (%d)", cfg.MinConns, cfg.MaxConns)
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return cfg, nil
}
