package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/config"
	"github.com/edusignal/edusignal/internal/database"
	"github.com/edusignal/edusignal/internal/handlers"
	"github.com/edusignal/edusignal/internal/middleware"
	"github.com/edusignal/edusignal/internal/services"
	"github.com/edusignal/edusignal/internal/validation"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	services  *services.Services
	handlers  *handlers.Handlers
	router    *gin.Engine
	scheduler *services.Scheduler
	cancelBus context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svcs, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schemas: %w", err)
	}
	app.handlers = handlers.New(app.logger, svcs, validator)

	if cfg.Scheduler.Enabled {
		scheduler, err := services.NewScheduler(&cfg.Scheduler, svcs.Orchestrator, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		scheduler.Start()
		app.scheduler = scheduler
	}

	if svcs.MessageBus != nil {
		busCtx, cancel := context.WithCancel(context.Background())
		app.cancelBus = cancel
		go func() {
			err := svcs.MessageBus.ConsumeFeedbackEvents(busCtx, func(ctx context.Context, courseID string) error {
				_, err := svcs.Orchestrator.RecomputeCourse(ctx, courseID)
				return err
			})
			if err != nil && busCtx.Err() == nil {
				app.logger.WithError(err).Error("Feedback event consumer stopped")
			}
		}()
	}

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.cancelBus != nil {
		a.cancelBus()
	}
	if a.services.MessageBus != nil {
		if err := a.services.MessageBus.Close(); err != nil {
			a.logger.WithError(err).Warn("Error closing message bus")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/priorities", a.handlers.Priority.List)
		v1.GET("/priorities/:courseId", a.handlers.Priority.Get)
		v1.GET("/weights", a.handlers.Weights.List)

		// Mutations require an admin token
		protected := v1.Group("")
		protected.Use(middleware.Auth(a.config, a.logger))
		protected.Use(middleware.RateLimit(a.services.RateLimit, a.logger))
		{
			protected.POST("/weights", a.handlers.Weights.Create)
			protected.POST("/weights/:id/activate", a.handlers.Weights.Activate)
			protected.POST("/weights/preview", a.handlers.Weights.Preview)
			protected.POST("/recompute", a.handlers.Recompute.Run)
		}
	}

	a.router = router
}
