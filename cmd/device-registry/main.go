package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"device-registry/internal/assets"
	"device-registry/internal/config"
	"device-registry/internal/export"
	"device-registry/internal/logger"
	"device-registry/internal/registry"
	"device-registry/internal/repository"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "device-registry")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	repo, err := openRepository(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("storage backend unavailable",
			zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer repo.Close()

	assetClient := assets.NewClient(cfg.AssetAPI.BaseURL, cfg.AssetAPI.Timeout, log)
	svc := registry.New(repo, assetClient, log)

	// One-shot export mode: write the inventory workbook and exit.
	if tenant, path := os.Getenv("EXPORT_TENANT"), os.Getenv("EXPORT_PATH"); tenant != "" && path != "" {
		runExport(svc, log, tenant, path)
		return
	}

	log.Info("device registry started",
		zap.String("backend", cfg.StorageBackend))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("device registry shutting down")
}

func runExport(svc *registry.Service, log *zap.Logger, tenant, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	wb, err := export.NewDeviceExporter(svc, log).Workbook(ctx, tenant)
	if err != nil {
		log.Fatal("export failed", zap.String("tenant_id", tenant), zap.Error(err))
	}
	defer wb.Close()
	if err := wb.SaveAs(path); err != nil {
		log.Fatal("export write failed", zap.String("path", path), zap.Error(err))
	}
	log.Info("device inventory exported",
		zap.String("tenant_id", tenant), zap.String("path", path))
}

// openRepository wires the backend named in the configuration. Both
// implementations satisfy the same contract, so everything above this
// call is backend-agnostic.
func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo := repository.NewRedisRepository(client)
		if err := repo.Ping(ctx); err != nil {
			return nil, err
		}
		log.Info("document backend connected", zap.String("addr", cfg.Redis.Addr))
		return repo, nil
	default:
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(cfg.Database.MaxConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdle)
		db.SetConnMaxLifetime(time.Hour)
		repo := repository.NewPostgresRepository(db)
		if err := repo.Ping(ctx); err != nil {
			return nil, err
		}
		log.Info("relational backend connected",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database))
		return repo, nil
	}
}
