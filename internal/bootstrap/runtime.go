// Package bootstrap wires configuration into a running state container:
// storage, store, persistor, gateway, services and the local server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"snapfeed/internal/config"
	"snapfeed/internal/featureflags"
	"snapfeed/internal/gateway"
	"snapfeed/internal/media"
	"snapfeed/internal/observability"
	"snapfeed/internal/persist"
	"snapfeed/internal/server"
	"snapfeed/internal/service"
	"snapfeed/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// driverMemory labels the in-process storage used when persistence is off.
const driverMemory = "memory"

// Runtime is the composed application.
type Runtime struct {
	Config    *config.Config
	Flags     *featureflags.Manager
	Store     *store.Store
	Persistor *persist.Persistor
	Sessions  *service.SessionService
	Posts     *service.PostService
	Directory *service.DirectoryService
	Server    *server.Server

	driver  string
	redis   *redis.Client
	db      *gorm.DB
	started bool
}

// New builds every component from cfg. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Flags:  featureflags.NewManager(cfg.FeatureFlags),
	}

	storage, checks, err := rt.openStorage(ctx)
	if err != nil {
		rt.closeConnections()
		return nil, err
	}

	rt.Store = store.New(store.WithSessionReducer(store.SessionReducer{
		ClearLoadingOnAuthSuccess: rt.Flags.On(featureflags.SignInClearsLoading),
	}))

	client, err := gateway.NewClient(cfg.APIURL, gateway.Options{
		Timeout:       cfg.GatewayTimeout(),
		RatePerSecond: cfg.GatewayRatePerSecond,
		Burst:         int(cfg.GatewayRatePerSecond) + 1,
	})
	if err != nil {
		rt.closeConnections()
		return nil, fmt.Errorf("gateway: %w", err)
	}

	rt.Persistor = persist.New(storage, rt.Store,
		persist.WithKey(cfg.PersistKey),
		persist.WithVersion(cfg.PersistVersion),
		persist.WithDriverName(rt.driver),
		persist.WithCredentials(client),
	)

	rt.Sessions = service.NewSessionService(client, rt.Store)
	rt.Posts = service.NewPostService(client, rt.Store, media.NewEncoder(cfg.ImageMaxUploadBytes()))
	rt.Directory = service.NewDirectoryService(client)

	rt.Server, err = server.NewServer(cfg, server.Deps{
		Store:       rt.Store,
		Sessions:    rt.Sessions,
		Posts:       rt.Posts,
		Directory:   rt.Directory,
		Flags:       rt.Flags,
		Redis:       rt.redis,
		ReadyChecks: checks,
	})
	if err != nil {
		rt.closeConnections()
		return nil, err
	}
	return rt, nil
}

// openStorage picks the persistence backend. With session persistence
// switched off the session lives only in memory.
func (rt *Runtime) openStorage(ctx context.Context) (persist.Storage, map[string]server.ReadyCheck, error) {
	checks := map[string]server.ReadyCheck{}
	cfg := rt.Config

	if !rt.Flags.On(featureflags.PersistSession) {
		rt.driver = driverMemory
		return persist.NewMemoryStorage(), checks, nil
	}

	rt.driver = cfg.StorageDriver
	switch cfg.StorageDriver {
	case config.DriverFile:
		fs, err := persist.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("file storage: %w", err)
		}
		return fs, checks, nil

	case config.DriverRedis:
		client, err := persist.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rt.redis = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return persist.NewRedisStorage(client, "snapfeed:"), checks, nil

	case config.DriverSQLite, config.DriverPostgres:
		db, err := persist.OpenSQL(cfg.StorageDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		rt.db = db
		storage := persist.NewSQLStorage(db)
		if err := storage.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate persisted_state: %w", err)
		}
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return storage, checks, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Start restores the persisted session and its backend cookie, begins
// mirroring changes to storage and revalidates the restored session against
// the backend. A rejected session is kept with the failure recorded in its
// error, the same as any other failed sign-in.
func (rt *Runtime) Start(ctx context.Context) {
	restored := rt.Persistor.Rehydrate(ctx)
	rt.Persistor.Start(context.Background())
	rt.started = true

	if !restored {
		return
	}
	if _, err := rt.Sessions.RefreshSession(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "restored session was rejected",
			"driver", rt.driver,
			"error", err,
		)
	}
}

// Driver names the storage backend in use.
func (rt *Runtime) Driver() string { return rt.driver }

// Shutdown stops the server, flushes the session and closes connections.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	if err := rt.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if rt.started {
		if err := rt.Persistor.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("persistor: %w", err))
		}
	}
	errs = append(errs, rt.closeConnections())
	return errors.Join(errs...)
}

func (rt *Runtime) closeConnections() error {
	var errs []error
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
		rt.redis = nil
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		rt.db = nil
	}
	return errors.Join(errs...)
}
