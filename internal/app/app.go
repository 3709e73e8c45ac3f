package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tabgate/internal/config"
	"github.com/MrSnakeDoc/tabgate/internal/engine"
	"github.com/MrSnakeDoc/tabgate/internal/gateway"
	"github.com/MrSnakeDoc/tabgate/internal/history"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver"
	"github.com/MrSnakeDoc/tabgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tabgate/internal/logger"
	"github.com/MrSnakeDoc/tabgate/internal/metrics"
	"github.com/MrSnakeDoc/tabgate/internal/redis"
	"github.com/MrSnakeDoc/tabgate/internal/registry"
	"github.com/MrSnakeDoc/tabgate/internal/scheduler"
	"github.com/MrSnakeDoc/tabgate/internal/sources/rules"
	redisstore "github.com/MrSnakeDoc/tabgate/internal/store/redis"
	"github.com/MrSnakeDoc/tabgate/internal/store/sqlite"
	"github.com/MrSnakeDoc/tabgate/internal/userdata"
	"github.com/MrSnakeDoc/tabgate/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	db          *sqlite.DB
	reloader    *scheduler.RulesReloader
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	m := metrics.New()

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(context.Background(), redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")
	store := redisstore.NewStore(redisClient)

	// SQLite holds everything that must outlive a restart
	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		loggerClient.Errorf("Failed to open database %s: %v", cfg.DBPath, err)
		os.Exit(1)
	}
	if err := sqlite.RunMigrations(db.Writer); err != nil {
		loggerClient.Errorf("Failed to run migrations: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("database ready", logger.String("path", cfg.DBPath))

	historyRepo := sqlite.NewHistoryRepo(db)
	settingsRepo := sqlite.NewSettingsRepo(db)

	engineClient := engine.New(engine.Options{
		BaseURL:   cfg.EngineURL,
		Token:     cfg.EngineToken,
		Timeout:   max(cfg.EngineNavigateTimeout, cfg.EngineCreateTimeout),
		RateLimit: cfg.EngineRateLimit,
		UserAgent: "tabgate/" + version.Version,
	}, loggerClient, m)

	reg := registry.New(engineClient, store, loggerClient, m, registry.Options{
		MaxTabs:        cfg.MaxTabs,
		IdleTimeout:    cfg.IdleTimeout,
		CreateTimeout:  cfg.EngineCreateTimeout,
		ReleaseTimeout: cfg.EngineReleaseTimeout,
	})

	// Contexts still alive in the engine stay reachable after a restart
	syncer := scheduler.NewRegistrySyncer(store, reg, loggerClient)
	if err := syncer.Sync(context.Background()); err != nil {
		loggerClient.Warn("failed to restore contexts from redis, starting empty",
			logger.Error(err))
	}

	recorder := history.NewRecorder(historyRepo, store, loggerClient, m, cfg.IdempotencyWindow)
	reader := history.NewReader(historyRepo)

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)
	holder := rules.NewHolder()
	reloader := scheduler.NewRulesReloader(
		cfg.RulesFile,
		holder,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	contexts := gateway.NewContextGateway(reg, loggerClient, cfg.EngineRetryMin, cfg.EngineRetryMax)
	navigation := gateway.NewNavigationGateway(
		reg,
		engineClient,
		settingsRepo,
		holder,
		recorder,
		loggerClient,
		m,
		gateway.NavigationOptions{
			NavigateTimeout: cfg.EngineNavigateTimeout,
			HistoryTimeout:  cfg.HistoryTimeout,
		},
	)

	gc := scheduler.NewGarbageCollector(reg, recorder, loggerClient, cfg.GCInterval)

	d := deps.Deps{
		Logger:             loggerClient,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		TimeNow:            time.Now,
		AllowedHosts:       cfg.AllowedHosts,
		AllowedCIDRS:       cfg.AllowedCIDRS,
		AllowedOrigins:     cfg.AllowedOrigin,
		TrustProxy:         cfg.TrustProxy,
		JWTSecret:          cfg.JWTSecret,
		JWTIssuer:          cfg.JWTIssuer,
		RateLimitBurst:     cfg.RateLimitBurst,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		Registry:           reg,
		Contexts:           contexts,
		Navigation:         navigation,
		Recorder:           recorder,
		Reader:             reader,
		Bookmarks:          userdata.NewBookmarks(sqlite.NewBookmarkRepo(db)),
		Settings:           userdata.NewSettings(settingsRepo),
		Profiles:           userdata.NewProfiles(sqlite.NewProfileRepo(db)),
		Rules:              holder,
		Metrics:            m,
		Redis:              store,
		Database:           db,
		Engine:             engineClient,
		ReloadTrigger:      reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		db:          db,
		reloader:    reloader,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Tabgate v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Tabgate %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start rules reloader (loads the rules file and starts periodic refresh)
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start rules reloader: %w", err)
	}
	a.logger.Info("rules reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval))

	// Start garbage collector
	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.GCInterval))

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

	a.reloader.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.db.Close(); err != nil {
		a.logger.Warnf("failed to close database: %v", err)
	} else {
		a.logger.Info("✅ Database closed cleanly")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Tabgate stopped cleanly")
	return nil
}
