package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/controller"
	"artiefy_backend/internal/middleware"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/service"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/configwatcher"
	"artiefy_backend/pkg/database"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/monitoring"
	"artiefy_backend/pkg/security"
	"artiefy_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	// ConfigFile 非空时 Run 会监听该文件并热加载
	ConfigFile string

	services        *services
	settings        *settings
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

// settings 可热更新的业务配置
type settings struct {
	mu      sync.RWMutex
	grading config.GradingConfig
}

func (s *settings) Grading() config.GradingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grading
}

func (s *settings) setGrading(g config.GradingConfig) {
	s.mu.Lock()
	s.grading = g
	s.mu.Unlock()
}

type repositories struct {
	user      *repository.UserRepository
	course    *repository.CourseRepository
	progress  *repository.ProgressRepository
	parametro *repository.ParametroRepository
	grade     *repository.GradeRepository
	subs      *repository.SubmissionStore
	questions *repository.QuestionStore
}

type services struct {
	storage     *service.StorageService
	progress    *service.ProgressService
	submission  *service.SubmissionService
	grade       *service.GradeService
	review      *service.ReviewService
	parametro   *service.ParametroService
	certificate *service.CertificateService
	lesson      *service.LessonService
	question    *service.QuestionService
}

type controllers struct {
	progress    *controller.ProgressController
	submission  *controller.SubmissionController
	grade       *controller.GradeController
	parametro   *controller.ParametroController
	certificate *controller.CertificateController
	lesson      *controller.LessonController
	question    *controller.QuestionController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		course:    repository.NewCourseRepository(db),
		progress:  repository.NewProgressRepository(db),
		parametro: repository.NewParametroRepository(db),
		grade:     repository.NewGradeRepository(db),
		subs:      repository.NewSubmissionStore(rdb),
		questions: repository.NewQuestionStore(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}
	grading := a.settings.Grading

	s.storage = service.NewStorageService(cfg)
	s.progress = service.NewProgressService(repos.course, repos.progress)
	s.submission = service.NewSubmissionService(repos.course, repos.progress, repos.subs, s.storage, s.progress, grading)
	s.grade = service.NewGradeService(repos.course, repos.progress, repos.parametro, repos.grade)
	s.review = service.NewReviewService(repos.course, repos.progress, repos.subs, s.storage, s.grade, grading)
	s.parametro = service.NewParametroService(repos.course, repos.parametro, grading)
	s.certificate = service.NewCertificateService(repos.course, repos.progress, repos.grade, repos.user, grading)
	s.lesson = service.NewLessonService(repos.course)
	s.question = service.NewQuestionService(repos.course, repos.questions)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		progress:    controller.NewProgressController(s.progress, s.grade),
		submission:  controller.NewSubmissionController(s.submission),
		grade:       controller.NewGradeController(s.review, s.grade, s.submission),
		parametro:   controller.NewParametroController(s.parametro),
		certificate: controller.NewCertificateController(s.certificate),
		lesson:      controller.NewLessonController(s.lesson),
		question:    controller.NewQuestionController(s.question),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时修复 KV 已评审但关系库未同步的记录
func (a *App) startBackgroundTasks() {
	rc := a.Config.Reconcile
	if !rc.Enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(rc.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				repaired, err := a.services.review.ReconcileReviewed(a.ctx, int64(rc.BatchSize))
				if err != nil {
					logger.Log.Error("submission reconcile failed", zap.Error(err))
					continue
				}
				if repaired > 0 {
					logger.Log.Info("submission reconcile finished", zap.Int("repaired", repaired))
				}
			}
		}
	}()
}

// New 组装应用；数据库与 Redis 由调用方建立
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		settings: &settings{grading: cfg.Grading},
		ctx:      ctx,
		cancel:   cancel,
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})
	app.RegisterConfigCallback(func(c *config.Config) {
		app.settings.setGrading(c.Grading)
		logger.Log.Info("grading settings updated",
			zap.Float64("max_grade", c.Grading.MaxGrade),
			zap.Float64("passing_grade", c.Grading.PassingGrade),
			zap.Int("max_weight", c.Grading.MaxWeight),
		)
	})

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg)
	controllers := app.initControllers(app.services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("artiefy-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.startBackgroundTasks()
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	if a.ConfigFile != "" {
		go func() {
			if err := configwatcher.WatchConfig(a.ctx, a.ConfigFile, a.applyConfig); err != nil {
				logger.Log.Error("Config hot reload disabled", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 停止后台任务与配置监听
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}
