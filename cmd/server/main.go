package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kukshaus/transcribe-sub000/internal/config"
	"github.com/kukshaus/transcribe-sub000/internal/handlers"
	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/kukshaus/transcribe-sub000/internal/media"
	"github.com/kukshaus/transcribe-sub000/internal/notes"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
	"github.com/kukshaus/transcribe-sub000/internal/transcribe"
	"github.com/kukshaus/transcribe-sub000/internal/transcription"
	"github.com/kukshaus/transcribe-sub000/internal/usage"
	"github.com/kukshaus/transcribe-sub000/internal/version"
	"github.com/kukshaus/transcribe-sub000/internal/worker"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Repositories
	jobRepo := storage.NewJobRepository(db)
	ledgerRepo := storage.NewLedgerRepository(db)
	usageRepo := storage.NewUsageRepository(db)

	// Services
	creditLedger := ledger.New(ledgerRepo, cfg.StarterCredits)
	tracker := usage.NewTracker(usageRepo, cfg.AnonymousLimit)
	reconciler := usage.NewReconciler(creditLedger, usageRepo, jobRepo, tracker)

	service := transcription.NewService(
		jobRepo,
		creditLedger,
		tracker,
		media.NewYouTubeFetcher(),
		media.NewFFmpegEncoder(),
		transcribe.NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.WhisperModel),
		notes.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.ChatModel),
		transcription.Options{DataDir: cfg.DataDir},
	)

	// Worker pool over the durable job queue
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewPool(jobRepo, service.Process, cfg.WorkerConcurrency)
	pool.Start(ctx)
	defer pool.Stop()

	// HTTP API
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	jobHandler := handlers.NewJobHandler(service)
	creditsHandler := handlers.NewCreditsHandler(creditLedger)
	accountHandler := handlers.NewAccountHandler(reconciler)

	e.POST("/api/jobs", jobHandler.Create)
	e.GET("/api/jobs", jobHandler.List)
	e.GET("/api/jobs/:id", jobHandler.Get)
	e.POST("/api/jobs/:id/notes", jobHandler.GenerateNotes)
	e.POST("/api/jobs/:id/requirements", jobHandler.GenerateRequirementsDoc)
	e.GET("/api/credits", creditsHandler.Balance)
	e.POST("/api/account/reconcile", accountHandler.Reconcile)
	e.GET("/health", func(c echo.Context) error {
		counts, err := jobRepo.CountByStatus(c.Request().Context())
		if err != nil {
			return c.JSON(503, map[string]string{"status": "degraded"})
		}
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"version": version.Version,
			"jobs":    counts,
		})
	})

	// Serve until interrupted
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down")
		cancel()
		_ = e.Shutdown(context.Background())
	}()

	log.Printf("Starting transcribe server v%s on port %s", version.Version, cfg.Port)
	if err := e.Start(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Println(err)
	}
}
