package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config chứa toàn bộ application configuration, populate từ environment
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	SMTP     SMTPConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
	BaseURL     string
}

// DatabaseConfig: Driver "postgres" hoặc "sqlite".
// Tham số pool của Postgres được đọc riêng bởi LoadDatabaseConfig.
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	CacheTTL time.Duration
	Enabled  bool
}

type StorageConfig struct {
	Driver        string // minio, filesystem
	Root          string // filesystem root
	UploadTempDir string
	MaxUploadSize int64
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type JobsConfig struct {
	Enabled     bool   // API enqueue qua asynq thay vì ghi đồng bộ
	RepairCron  string // lịch RepairOwnership
	Concurrency int
	HealthPort  string // worker health endpoint
}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "ELPA Registry"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			SQLitePath: getEnv("SQLITE_PATH", "elpa.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", 10*time.Minute),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "minio"),
			Root:          getEnv("STORAGE_ROOT", "./data/packages"),
			UploadTempDir: getEnv("UPLOAD_TEMP_DIR", ""),
			MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 16<<20)),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "elpa-packages"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@elpa.local"),
		},
		Jobs: JobsConfig{
			Enabled:     getEnvBool("JOBS_ENABLED", true),
			RepairCron:  getEnv("JOBS_REPAIR_CRON", "0 3 * * *"),
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 10),
			HealthPort:  getEnv("WORKER_HEALTH_PORT", "9999"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "minio", "filesystem":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be minio or filesystem, got %q", c.Storage.Driver)
	}
	if c.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.IsProduction() {
		if c.Database.Driver == "postgres" && getEnv("DB_PASSWORD", "") == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.Storage.Driver == "minio" && c.MinIO.SecretKey == "minioadmin" {
			return fmt.Errorf("MINIO_SECRET_KEY must be changed in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
