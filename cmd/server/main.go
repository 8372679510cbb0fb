package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dco-chess/analysis-service/configs"
	"github.com/dco-chess/analysis-service/internal/analyser"
	"github.com/dco-chess/analysis-service/internal/classify"
	"github.com/dco-chess/analysis-service/internal/eco"
	"github.com/dco-chess/analysis-service/internal/engine"
	"github.com/dco-chess/analysis-service/internal/handlers"
	"github.com/dco-chess/analysis-service/internal/importer"
	"github.com/dco-chess/analysis-service/internal/jobs"
	"github.com/dco-chess/analysis-service/internal/middleware"
	"github.com/dco-chess/analysis-service/internal/practice"
	"github.com/dco-chess/analysis-service/internal/storage"
	"github.com/dco-chess/analysis-service/internal/ws"
)

func main() {
	// Initialize configuration
	cfg := configs.Load()

	// Setup logging
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Open the embedded store, migrating a legacy root-level database into
	// data/db if one exists and the new location is still empty
	store, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.LegacyDBPath)
	if err != nil {
		logrus.Fatalf("Failed to open store at %s: %v", cfg.Storage.DBPath, err)
	}
	defer store.Close()

	// Initialize the engine pool
	engineCfg := engine.Config{
		BinaryPath:     cfg.Engine.BinaryPath,
		MaxWorkers:     cfg.Engine.MaxWorkers,
		Threads:        cfg.Engine.Threads,
		HashMB:         cfg.Engine.HashSizeMB,
		DefaultDepth:   cfg.Engine.DefaultDepth,
		DefaultTimeMS:  cfg.Engine.DefaultTimeMs,
		DefaultMultiPV: cfg.Engine.DefaultMultiPV,
	}
	if cfg.Engine.SkillLevel >= 0 {
		skill := cfg.Engine.SkillLevel
		engineCfg.SkillLevel = &skill
	}
	pool := engine.NewPool(engineCfg)
	if err := pool.Initialize(); err != nil {
		logrus.Fatalf("Failed to initialize engine pool: %v", err)
	}
	defer pool.Shutdown()

	// Build the analysis pipeline
	ecoDetector := eco.NewDetector(eco.DefaultTable)
	gameAnalyser := analyser.New(pool, classify.Thresholds{
		ExcellentCP:  cfg.Classify.ExcellentCP,
		GoodCP:       cfg.Classify.GoodCP,
		InaccuracyCP: cfg.Classify.InaccuracyCP,
		MistakeCP:    cfg.Classify.MistakeCP,
	}, ecoDetector, analyser.Config{
		Depth:          cfg.Engine.DefaultDepth,
		TimeMS:         cfg.Engine.DefaultTimeMs,
		BookPlies:      cfg.Classify.BookPlies,
		AcquireTimeout: cfg.Engine.AcquireTimeout,
		ECOMaxPlies:    cfg.Classify.ECOMaxPlies,
	})

	practiceCfg := practice.Config{
		OffsetPlies:     cfg.Practice.OffsetPlies,
		TargetLinePlies: cfg.Practice.TargetLinePlies,
		Categories:      practice.DefaultCategories(),
		SearchDepth:     cfg.Engine.DefaultDepth,
	}
	if cfg.Practice.IncludeInaccuracy {
		practiceCfg.Categories = practice.WithInaccuracy(practiceCfg.Categories)
	}

	hub := ws.NewHub()
	runner := jobs.NewRunner(store, pool, gameAnalyser,
		practice.New(practiceCfg, uuid.NewString), hub, uuid.NewString, "stockfish")

	chessComClient := importer.NewChessComClient(
		cfg.Import.ChessComBaseURL,
		cfg.Import.UserAgent,
		cfg.Import.FetchConcurrency,
		cfg.Import.HTTPTimeout,
	)
	imp := importer.New(store, uuid.NewString, chessComClient)

	// Setup Gin
	if cfg.App.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:3001"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting middleware
	router.Use(middleware.RateLimit(cfg.RateLimit))

	// Initialize handlers
	gamesHandler := handlers.NewGamesHandler(store, imp, runner, cfg.Import.AutoAnalyze, cfg.Import.AutoDedupe)
	analysisHandler := handlers.NewAnalysisHandler(store, runner, pool, hub,
		cfg.Engine.AcquireTimeout, cfg.Engine.MaxDepth, cfg.Engine.MaxTimeMs)
	practiceHandler := handlers.NewPracticeHandler(store, cfg.Practice.SessionLimit, cfg.Practice.DueOnly)
	openingHandler := handlers.NewOpeningHandler(ecoDetector, store)
	healthHandler := handlers.NewHealthHandler()

	// API routes
	api := router.Group("/api")
	{
		games := api.Group("/games")
		{
			games.GET("", gamesHandler.ListGames)
			games.POST("/import", gamesHandler.ImportPGN)
			games.POST("/analyze-batch", analysisHandler.BatchAnalyze)
			games.GET("/:id", gamesHandler.GetGame)
			games.DELETE("/:id", gamesHandler.DeleteGame)
			games.POST("/:id/analyze", analysisHandler.AnalyzeGame)
			games.GET("/:id/analysis", analysisHandler.GetAnalysis)
			games.GET("/:id/opening", openingHandler.GetGameOpening)
			games.GET("/:id/practice", practiceHandler.ListGameItems)
		}

		api.POST("/import/chesscom", gamesHandler.ImportChessCom)

		positions := api.Group("/positions")
		{
			positions.POST("/analyze", analysisHandler.AnalyzePosition)
		}

		jobsGroup := api.Group("/jobs")
		{
			jobsGroup.GET("/:jobId", analysisHandler.GetJob)
			jobsGroup.GET("/:jobId/ws", analysisHandler.ServeJobWS)
		}

		batches := api.Group("/batches")
		{
			batches.GET("/:batchId", analysisHandler.GetBatch)
			batches.DELETE("/:batchId", analysisHandler.CancelBatch)
		}

		practiceGroup := api.Group("/practice")
		{
			practiceGroup.POST("/session", practiceHandler.StartSession)
			practiceGroup.POST("/items/:itemId/attempt", practiceHandler.SubmitAttempt)
		}

		openings := api.Group("/openings")
		{
			openings.GET("/detect", openingHandler.DetectOpening)
		}

		api.GET("/health", healthHandler.Health)
		api.GET("/stats", healthHandler.Stats)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
