package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/bookmarks"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/httpserver"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
	"github.com/MrSnakeDoc/marks/internal/sources/homepage"
	filestore "github.com/MrSnakeDoc/marks/internal/store/file"
	"github.com/MrSnakeDoc/marks/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	seedReloader *scheduler.SeedReloader
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Metrics registry: Go runtime + process collectors plus ours
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	repo, redisClient, err := newRepository(cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	store := bookmarks.NewStore(repo, loggerClient, m)

	// Initialize seed reloader (if a Homepage bookmarks file is configured)
	var seedReloader *scheduler.SeedReloader
	var seedReloadTrigger chan struct{}
	if cfg.SeedFile != "" {
		loggerClient.Info("seed file configured, initializing seed reloader",
			logger.String("file", cfg.SeedFile))
		seedReloadTrigger = make(chan struct{}, 1)
		seedReloader = scheduler.NewSeedReloader(
			homepage.NewSource(cfg.SeedFile),
			store,
			loggerClient,
			cfg.SeedInterval,
			seedReloadTrigger,
		)
	} else {
		loggerClient.Debug("seed file not configured, seeding disabled")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:             loggerClient,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		TimeNow:            time.Now,
		Store:              store,
		Storage:            cfg.Storage,
		Validate:           handlers.NewValidator(),
		Metrics:            m,
		Gatherer:           reg,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		ImportBurst:        cfg.ImportBurst,
		ImportRefillPerMin: cfg.ImportRefillPerMin,
		AllowedHosts:       cfg.AllowedHosts,
		AllowedCIDRS:       cfg.AllowedCIDRS,
		TrustProxy:         cfg.TrustProxy,
		SeedReloadTrigger:  seedReloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       server,
		redisClient:  redisClient,
		seedReloader: seedReloader,
	}, nil
}

// newRepository picks the storage backend. The Redis client, when one is
// created, is returned so it can be closed on shutdown.
func newRepository(cfg *config.Config, log logger.Logger) (bookmarks.Repository, *goredis.Client, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		// Fail fast if Redis never becomes reachable
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		return redisstore.NewRepository(client, cfg.RedisKeyPrefix, cfg.RedisHistory, log), client, nil

	case config.StorageMemory:
		log.Warn("memory storage selected, bookmarks are lost on restart")
		return memory.New(), nil, nil

	default:
		log.Info("file storage selected",
			logger.String("path", cfg.DataFile),
			logger.Bool("ephemeral", cfg.Ephemeral))
		return filestore.New(cfg.DataFile), nil, nil
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("marks %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start seed reloader (if enabled). A broken seed file never blocks startup.
	if a.seedReloader != nil {
		if err := a.seedReloader.Start(ctx); err != nil {
			a.logger.Warn("seed import failed, will retry on next reload", logger.Error(err))
		}
		a.logger.Info("seed reloader started",
			logger.Duration("interval", a.cfg.SeedInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.seedReloader != nil {
		a.seedReloader.Stop()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ marks stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
