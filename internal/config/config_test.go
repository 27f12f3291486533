package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"device-registry/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	require.Equal(t, config.BackendPostgres, cfg.StorageBackend)
	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 10*time.Second, cfg.AssetAPI.Timeout)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", config.BackendRedis)
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("ASSET_API_TIMEOUT_SECONDS", "3")

	cfg := config.Load()

	require.Equal(t, config.BackendRedis, cfg.StorageBackend)
	require.Equal(t, "cache:6380", cfg.Redis.Addr)
	require.Equal(t, 15432, cfg.Database.Port)
	// Unparseable values fall back to the default.
	require.Equal(t, 10, cfg.Database.MaxConns)
	require.Equal(t, 3*time.Second, cfg.AssetAPI.Timeout)
}

func TestDatabaseDSN(t *testing.T) {
	c := config.DatabaseConfig{
		Host: "db", Port: 5433, User: "svc", Password: "secret",
		Database: "registry", SSLMode: "require",
	}
	require.Equal(t,
		"host=db port=5433 user=svc password=secret dbname=registry sslmode=require",
		c.DSN())
}
