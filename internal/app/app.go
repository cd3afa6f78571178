package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/internal/controller"
	"course_progress_backend/internal/repository"
	"course_progress_backend/internal/service"
	"course_progress_backend/pkg/configwatcher"
	"course_progress_backend/pkg/database"
	"course_progress_backend/pkg/logger"
	"course_progress_backend/pkg/monitoring"
	"course_progress_backend/pkg/security"
	"course_progress_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Progress *service.ProgressService
	Catalog  *repository.CatalogRepository

	limiters        []*security.Limiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	catalog     *repository.CatalogRepository
	attempts    *repository.QuizAttemptRepository
	activity    *repository.ActivityRepository
	enrollments *repository.EnrollmentRepository
	progress    *repository.ProgressRepository
}

type controllers struct {
	progress *controller.ProgressController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) reload(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		catalog:     repository.NewCatalogRepository(db),
		attempts:    repository.NewQuizAttemptRepository(db),
		activity:    repository.NewActivityRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		progress:    repository.NewProgressRepository(db),
	}
}

// 启用 redis 时使用共享缓存与分布式锁，否则退回进程内实现
func (a *App) initProgressService(repos *repositories, cfg *config.Config) *service.ProgressService {
	var (
		cache  service.TreeCache = service.NoopTreeCache{}
		locker service.Locker    = service.NewLocalLocker()
	)
	if a.Redis != nil {
		cache = service.NewRedisTreeCache(a.Redis, cfg.Progress.CacheTTL)
		locker = service.NewRedisLocker(a.Redis, cfg.Progress.LockTTL)
	}
	return service.NewProgressService(repos.catalog, repos.attempts, repos.activity, repos.enrollments, repos.progress, cache, locker, cfg)
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())

	global := security.NewLimiter(cfg.RateLimit)
	a.limiters = append(a.limiters, global)
	router.Use(global.Middleware(security.ByClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化数据库、缓存与进度服务；MigrateOnly 时迁移后直接返回
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: db}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.Redis = rdb
	}

	repos := initRepositories(db)
	app.Catalog = repos.catalog
	app.Progress = app.initProgressService(repos, cfg)
	app.RegisterConfigCallback(app.Progress.UpdateSettings)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-progress", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router
	app.setupMiddlewares(router, cfg)

	c := &controllers{
		progress: controller.NewProgressController(app.Progress),
		health:   controller.NewHealthController(db, app.Redis),
	}
	app.registerRoutes(router, c, cfg)

	return app, nil
}

// startBackgroundTasks 定时刷新过期进度，间隔随配置热加载生效
func (a *App) startBackgroundTasks(ctx context.Context) {
	interval := func() time.Duration {
		if d := a.Progress.Settings().RefreshInterval; d > 0 {
			return d
		}
		return 10 * time.Minute
	}

	timer := time.NewTimer(interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := a.Progress.RefreshStale(ctx); err != nil {
				logger.Log.Error("stale progress refresh error", zap.Error(err))
			}
			timer.Reset(interval())
		}
	}
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, l := range a.limiters {
		go l.Run(ctx.Done())
	}
	go a.startBackgroundTasks(ctx)
	go func() {
		if err := configwatcher.Watch(ctx, a.Config.Path, a.reload); err != nil {
			logger.Log.Warn("config hot reload disabled", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 等待进行中的请求结束（最多5秒）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Close()
	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放连接，命令行子命令结束时也需要调用
func (a *App) Close() {
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	logger.Log.Sync()
}
