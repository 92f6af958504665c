package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/backend/internal/cache"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/database"
	"taskboard/backend/internal/logging"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/realtime"
	"taskboard/backend/internal/repositories"
	"taskboard/backend/internal/router"
	"taskboard/backend/internal/services"
	"taskboard/backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/gorm"
)

type app struct {
	cfg    *config.Config
	logger *log.Logger

	db          *gorm.DB
	redis       *redis.Client
	cache       cache.Cache
	warmer      *cache.Warmer
	hub         *realtime.Hub
	monitor     *monitoring.Monitor
	jobs        *worker.Worker
	rateLimiter *middleware.RateLimiter
	tracer      *sdktrace.TracerProvider
	engine      *gin.Engine
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == database.DriverSQLite && cfg.Database.SQLitePath == ":memory:" {
		return database.OpenInMemory()
	}
	db, err := database.NewDatabasePool(database.PoolConfigFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newApp(cfg *config.Config, logger *log.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a.db = db

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		a.redis = cache.NewRedisClient(cache.CacheConfigFromConfig(cfg))
		redisCache = cache.NewRedisCacheWithClient(a.redis)
	}
	a.cache = cache.NewMultiLevelCache(redisCache)
	a.warmer = cache.NewWarmer(a.cache, 2, logger)

	a.hub = realtime.NewHub(logger)
	a.monitor = monitoring.NewMonitor(logger)
	a.monitor.RegisterHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	a.monitor.RegisterHealthCheck("cache", a.cache.Health)

	store := repositories.NewGormStore(db)
	authz := services.NewAuthorizationService(store, logger)
	boards := services.NewCachedBoardService(services.NewBoardReader(store), authz, a.cache, a.warmer, cfg.Board.CacheTTL, logger)
	publisher := services.Publishers{boards, a.hub, a.monitor}

	var scheduler services.RenormalizeScheduler
	if a.redis != nil && cfg.Board.RenormalizeEnabled {
		scheduler = worker.NewRenormalizeQueue(a.redis)
	}

	workspaces := services.NewWorkspaceService(store, authz, publisher, logger)
	columns := services.NewColumnService(store, authz, cfg.Board, publisher, logger)
	tasks := services.NewTaskService(store, authz, publisher, scheduler, logger)

	if a.redis != nil {
		a.jobs = worker.NewWorker(worker.WorkerConfig{
			RedisClient: a.redis,
			Queues:      cfg.Worker.Queues,
			PollTimeout: cfg.Worker.PollInterval,
			Logger:      logger,
		})
		a.jobs.RegisterHandler(worker.JobTypeRenormalizeColumn, worker.RenormalizeHandler(tasks, a.redis, logger))
	}

	if cfg.RateLimit.Enabled {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	a.engine = router.New(router.Deps{
		Config:      cfg,
		Logger:      logger,
		Tokens:      services.NewTokenService(cfg.Auth),
		Authz:       authz,
		Workspaces:  workspaces,
		Boards:      boards,
		Columns:     columns,
		Tasks:       tasks,
		Hub:         a.hub,
		Monitor:     a.monitor,
		RateLimiter: a.rateLimiter,
	})
	return a, nil
}

// start launches the background loops. They stop when ctx is cancelled.
func (a *app) start(ctx context.Context) {
	a.tracer = logging.NewTracerProvider(a.logger)

	go a.hub.Run(ctx)
	a.warmer.Start(ctx)
	if a.jobs != nil {
		a.jobs.Start(ctx, a.cfg.Worker.Concurrency)
	}
	if a.rateLimiter != nil && a.cfg.RateLimit.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(a.cfg.RateLimit.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := a.rateLimiter.Cleanup(); n > 0 {
						a.logger.WithField("removed", n).Debug("rate limiter visitors cleaned up")
					}
				}
			}
		}()
	}
}

func (a *app) close(ctx context.Context) {
	if a.jobs != nil {
		a.jobs.Stop()
	}
	a.warmer.Stop()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("tracer shutdown failed")
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.WithError(err).Warn("cache close failed")
	}
	if err := database.Close(a.db); err != nil {
		a.logger.WithError(err).Warn("database close failed")
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	logger := logging.New(cfg)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialise application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.start(ctx)

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      a.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	a.close(shutdownCtx)
}
