package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/config"
	"github.com/procurechat/dealengine/internal/database"
	"github.com/procurechat/dealengine/internal/handlers"
	"github.com/procurechat/dealengine/internal/messaging"
	"github.com/procurechat/dealengine/internal/middleware"
	"github.com/procurechat/dealengine/internal/services"
	"github.com/procurechat/dealengine/internal/validation"
)

type App struct {
	config         *config.Config
	logger         *logrus.Logger
	db             *database.Database
	services       *services.Services
	handlers       *handlers.Handlers
	schemas        *validation.SchemaValidator
	messageBus     *messaging.MessageBus
	router         *gin.Engine
	cancelConsumer context.CancelFunc
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

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile validation schemas: %w", err)
	}
	app.schemas = schemas

	if len(cfg.Kafka.Brokers) > 0 {
		bus, err := messaging.NewMessageBus(cfg, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize message bus: %w", err)
		}
		app.messageBus = bus
	} else {
		app.logger.Warn("No Kafka brokers configured; MESO selection consumer disabled")
	}

	app.handlers = handlers.New(app.logger, svcs, schemas, app.messageBus)

	if app.messageBus != nil {
		app.startSelectionConsumer()
	}

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancelConsumer != nil {
		a.cancelConsumer()
	}

	if a.messageBus != nil {
		if err := a.messageBus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing message bus")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

// startSelectionConsumer feeds MESO selections from Kafka into the same
// processor the HTTP endpoint uses. Payloads are schema-validated before
// they touch the profile store; stale rounds fail and land on the DLQ.
func (a *App) startSelectionConsumer() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelConsumer = cancel

	go func() {
		err := a.messageBus.ConsumeSelections(ctx, func(msg messaging.SelectionMessage) error {
			if result := a.schemas.ValidateMesoSelection(msg.Selection); !result.Valid {
				return fmt.Errorf("selection failed schema validation: %v", result.Errors)
			}

			_, err := a.services.SelectionProcessor.ProcessSelection(ctx, msg.Selection, msg.Option, "kafka")
			return err
		})
		if err != nil && err != context.Canceled {
			a.logger.WithError(err).Error("Selection consumer stopped")
		}
	}()
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

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health check endpoint (no auth required)
	router.GET("/health", a.handlers.Health.Check)

	// Prometheus metrics endpoint (no auth required)
	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	// Token exchange (no auth required)
	router.POST("/auth/login", a.handlers.Auth.Login)

	// API routes
	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(a.services.Auth, a.logger))

		api.POST("/auth/logout", a.handlers.Auth.Logout)

		// Negotiation routes
		negotiations := api.Group("/negotiations")
		{
			negotiations.POST("/evaluate", a.handlers.Negotiation.Evaluate)
		}

		// Preference profile routes
		profiles := api.Group("/profiles/:vendorId")
		{
			profiles.POST("/merge", a.handlers.Preference.MergeVendor)

			deals := profiles.Group("/deals/:dealId")
			{
				deals.POST("/selections", a.handlers.Preference.RecordSelection)
				deals.GET("", a.handlers.Preference.GetProfile)
				deals.GET("/adjustments", a.handlers.Preference.GetAdjustments)
				deals.POST("/weights", a.handlers.Preference.ApplyWeights)
			}
		}
	}

	a.router = router
}
