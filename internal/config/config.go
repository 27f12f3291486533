package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend selects which storage implementation is wired at startup.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DatabaseConfig holds relational backend settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN builds the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds document backend settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AssetAPIConfig holds asset-management collaborator settings.
type AssetAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Config is the full process configuration, loaded from the environment.
type Config struct {
	StorageBackend string
	Database       DatabaseConfig
	Redis          RedisConfig
	AssetAPI       AssetAPIConfig
	Log            struct {
		Level  string
		Format string
	}
}

func Load() *Config {
	cfg := &Config{}
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", BackendPostgres)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "deviceregistry")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.AssetAPI.BaseURL = getEnv("ASSET_API_URL", "http://localhost:8090")
	cfg.AssetAPI.Timeout = time.Duration(parseInt(getEnv("ASSET_API_TIMEOUT_SECONDS", "10"), 10)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return fallback
}
