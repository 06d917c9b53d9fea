package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/woodguard/server/adapters"
	adaptermongo "github.com/woodguard/server/adapters/mongo"
	"github.com/woodguard/server/adapters/onset"
	"github.com/woodguard/server/adapters/sounds"
	"github.com/woodguard/server/adapters/species"
	"github.com/woodguard/server/domain/repositories"
	"github.com/woodguard/server/internal/api"
	"github.com/woodguard/server/internal/auth"
	"github.com/woodguard/server/internal/config"
	"github.com/woodguard/server/internal/detect"
	"github.com/woodguard/server/internal/dsp"
	"github.com/woodguard/server/internal/websocket"
	"github.com/woodguard/server/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize the classification pipeline
	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build classifier", zap.Error(err))
	}

	// Detection history: MongoDB when configured, in-memory otherwise
	var detections repositories.DetectionRepository
	if cfg.MongoURI != "" {
		mongoClient, err := adaptermongo.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoClient.Close(ctx)
		}()
		detections = adaptermongo.NewDetectionRepository(mongoClient.Database)
	} else {
		logger.Info("MONGODB_URI not set, using in-memory detection history")
		detections = adapters.NewMemoryDetectionRepository(0)
	}

	soundLibrary := sounds.NewFilesystemLibrary(cfg.SoundsDir, logger)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret)

	// Initialize usecase services
	detectionService := usecase.NewDetectionService(classifier, detections, logger)

	// Initialize WebSocket hub with the detection service
	hub := websocket.NewHub(detectionService, soundLibrary, websocket.Config{
		AmplifyGain:    cfg.AmplifyGain,
		BufferCapacity: cfg.BufferCapacity(),
		Gate: detect.GateConfig{
			Threshold: cfg.ConfidenceThreshold,
			Mute:      cfg.MuteDuration,
			Cooldown:  cfg.ResponseCooldown,
		},
		IdleTimeout:        cfg.IdleTimeout,
		ResponseMode:       repositories.ResponseMode(cfg.ResponseMode),
		EmitBufferProgress: cfg.Analyzer == config.AnalyzerSpecies,
	}, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, api.Deps{
		Hub:          hub,
		Detections:   detections,
		Sounds:       soundLibrary,
		Issuer:       issuer,
		Analyzer:     string(cfg.Analyzer),
		Threshold:    cfg.ConfidenceThreshold,
		ProvisionKey: cfg.ProvisionKey,
		Logger:       logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("analyzer", string(cfg.Analyzer)),
		zap.Float64("threshold", cfg.ConfidenceThreshold),
		zap.Int("windowSamples", classifier.WindowSize()))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildClassifier selects the analysis pipeline from configuration.
func buildClassifier(cfg config.Config, logger *zap.Logger) (repositories.Classifier, error) {
	if cfg.Analyzer == config.AnalyzerSpecies {
		return species.NewMockClassifier(cfg.WindowSize(), cfg.RMSFloor, logger), nil
	}

	profile := onset.DefaultProfile()
	profile.RMSFloor = cfg.RMSFloor

	peaks := dsp.DefaultPeakPickConfig()
	peaks.Delta = cfg.PeakDelta
	peaks.Wait = cfg.PeakWait

	return onset.NewClassifier(
		dsp.DefaultProfilerConfig(float64(cfg.SampleRate)),
		peaks,
		profile,
		cfg.WindowSize(),
		logger,
	)
}
