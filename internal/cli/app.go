package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/handlers"
	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/router"
	"github.com/bluerally/buooy-backend/internal/social"
	"github.com/bluerally/buooy-backend/pkg/cache"
	"github.com/bluerally/buooy-backend/pkg/config"
	"github.com/bluerally/buooy-backend/pkg/firebase"
	"github.com/bluerally/buooy-backend/pkg/logger"
	"github.com/bluerally/buooy-backend/pkg/metrics"
	"github.com/bluerally/buooy-backend/pkg/storage"
)

const cacheKeyPrefix = "buooy:"

// app is the process-wide state shared by the commands.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *config.DB
}

func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logger.New(&logger.Config{Level: level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	return cfg, log, nil
}

// bootstrap loads configuration and opens every backing store.
func bootstrap(opts *RootOptions) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	db, err := config.InitDB(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	a.db.CloseDB()
	_ = a.log.Sync()
}

func (a *app) cache() cache.Store {
	if a.db.Redis != nil {
		return cache.NewRedisStore(a.db.Redis, cacheKeyPrefix)
	}
	a.log.Warn("redis disabled, using in-process cache")
	return cache.NewMemoryStore()
}

func (a *app) storage(ctx context.Context) (storage.ObjectStorage, error) {
	if a.cfg.Storage.Bucket == "" {
		a.log.Warn("no storage bucket configured, keeping uploads in memory")
		return storage.NewMemoryStorage(a.cfg.Storage.PublicBaseURL), nil
	}
	s3, err := storage.NewS3Storage(ctx, a.cfg.Storage, storage.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}

func (a *app) providers(ctx context.Context) *social.Registry {
	providers := []social.Provider{
		social.NewGoogle(a.cfg.Social.Google),
		social.NewKakao(a.cfg.Social.Kakao),
		social.NewNaver(a.cfg.Social.Naver),
	}
	fb, err := firebase.InitFirebase(ctx, a.cfg.Firebase.CredentialsPath, a.log)
	switch {
	case errors.Is(err, firebase.ErrNotConfigured):
		a.log.Info("firebase login disabled")
	case err != nil:
		a.log.Warn("firebase login disabled", zap.Error(err))
	default:
		providers = append(providers, social.NewFirebase(fb.AuthClient))
	}
	return social.NewRegistry(providers...)
}

func (a *app) health() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := a.db.Postgres.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if a.db.Mongo != nil {
		checks["mongo"] = handlers.PingFunc(func(ctx context.Context) error {
			return a.db.Mongo.Ping(ctx, nil)
		})
	}
	if a.db.Redis != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return a.db.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

// dependencies assembles the router inputs. m may be nil.
func (a *app) dependencies(ctx context.Context, m *metrics.Metrics) (router.Dependencies, error) {
	objects, err := a.storage(ctx)
	if err != nil {
		return router.Dependencies{}, fmt.Errorf("init storage: %w", err)
	}
	deps := router.Dependencies{
		Config:    a.cfg,
		DB:        a.db.Postgres,
		Cache:     a.cache(),
		Storage:   objects,
		Providers: a.providers(ctx),
		Metrics:   m,
		Health:    a.health(),
		Log:       a.log,
	}
	if a.db.Mongo != nil {
		deps.RequestLogs = repositories.NewMongoRequestLogRepository(a.db.Mongo.Database(a.cfg.Mongo.Database))
		deps.RequestLogWriter = middleware.NewRequestLogWriter(deps.RequestLogs, a.log)
	}
	return deps, nil
}
