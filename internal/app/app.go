package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/csvshare-backend/internal/data/db"
	httpserver "github.com/yungbote/csvshare-backend/internal/http"
	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/cache"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/platform/storage"
	"github.com/yungbote/csvshare-backend/internal/realtime"
)

type App struct {
	Log         *logger.Logger
	DB          *gorm.DB
	Cfg         Config
	Repos       Repos
	Services    Services
	Server      *httpserver.Server
	Metrics     *observability.Metrics
	Registry    *realtime.Registry
	Broadcaster *realtime.Broadcaster

	dbService    *db.Service
	cache        cache.CSVCache
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(log, cfg)
}

// NewWithConfig wires the application from an already loaded config.
func NewWithConfig(log *logger.Logger, cfg Config) (*App, error) {
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, cfg.ObservabilityOtel())

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	dbService, err := db.Open(cfg.DBConfig(), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	store, err := storage.New(ctx, log, cfg.StorageConfig())
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	contentCache, err := cache.NewRedisCache(log, cfg.Cache.RedisAddr, cfg.Cache.TTL, metrics)
	if err != nil {
		log.Warn("Redis cache unavailable, serving content uncached", "error", err)
		contentCache = cache.Noop()
	}

	registry := realtime.NewRegistry(cfg.Realtime.MaxConnections)
	broadcaster := realtime.NewBroadcaster(log, registry, realtime.BroadcasterOptions{
		MaxParallel: cfg.Realtime.MaxParallel,
		QueueSize:   cfg.Realtime.QueueSize,
		Metrics:     metrics,
	})
	endpoint := realtime.NewEndpoint(log, registry, realtime.EndpointOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		PongWait:       cfg.Realtime.PongWait,
		SendTimeout:    cfg.Realtime.SendTimeout,
		Metrics:        metrics,
	})

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, store, contentCache, broadcaster)
	if err != nil {
		_ = contentCache.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, cfg, serviceset, endpoint)
	middleware := wireMiddleware(log, cfg, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		Metrics:      metrics,
		Registry:     registry,
		Broadcaster:  broadcaster,
		dbService:    dbService,
		cache:        contentCache,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP, the metrics endpoint and the event dispatch loop until ctx
// is cancelled or one of them fails. Open notification channels are closed on
// the way out.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Run(gctx, a.Cfg.Addr())
	})
	g.Go(func() error {
		return a.Broadcaster.Run(gctx)
	})
	if a.Metrics != nil {
		g.Go(func() error {
			return a.Metrics.Serve(gctx, a.Log, a.Cfg.Metrics.Addr)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		n := a.Registry.CloseAll()
		a.Log.Info("Closed notification channels", "count", n)
		return nil
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Log.Warn("cache close failed", "error", err)
		}
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
