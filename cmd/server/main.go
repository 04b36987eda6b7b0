package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/database"
	"github.com/stemsi/snbp-backend/internal/handler"
	"github.com/stemsi/snbp-backend/internal/logger"
	"github.com/stemsi/snbp-backend/internal/repository"
	"github.com/stemsi/snbp-backend/internal/router"
	"github.com/stemsi/snbp-backend/internal/service"
	"github.com/stemsi/snbp-backend/internal/validator"
	"github.com/stemsi/snbp-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("quota_rounding", string(cfg.QuotaRounding)).
		Msg("Starting SNBP Eligibility Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	gradeRepo := repository.NewGradeRepository(pool)
	majorRepo := repository.NewMajorRepository(pool)
	rebuttalRepo := repository.NewRebuttalRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	auditService := service.NewAuditService(rdb, log)
	gate := service.NewRecalcGate(rdb, cfg.RecalcLockTTL, log)
	settingService := service.NewSettingService(settingRepo, log)
	scoreService := service.NewScoreService(gradeRepo, settingService, log)
	policy := service.QuotaPolicy{
		Rounding:        cfg.QuotaRounding,
		CountUnrankable: cfg.CountUnrankable,
	}
	recalcQueue := service.NewRecalcQueue(rdb, log)
	recalcService := service.NewRecalcService(
		studentRepo, gradeRepo, majorRepo, settingService, gate, auditService, policy, log)
	studentService := service.NewStudentService(studentRepo, gate, recalcQueue)
	majorService := service.NewMajorService(majorRepo)
	gradeService := service.NewGradeService(gradeRepo, studentRepo, gate, recalcQueue, log)
	rebuttalService := service.NewRebuttalService(rebuttalRepo, studentRepo, auditService, gate, recalcQueue, log)
	importService := service.NewImportService(studentRepo, gradeRepo, majorRepo, recalcService, gate, log)
	reportService := service.NewReportService(studentRepo, majorRepo, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Student:  handler.NewStudentHandler(studentService, scoreService),
		Major:    handler.NewMajorHandler(majorService),
		Grade:    handler.NewGradeHandler(gradeService),
		Rebuttal: handler.NewRebuttalHandler(rebuttalService),
		Recalc:   handler.NewRecalcHandler(recalcService),
		Report:   handler.NewReportHandler(reportService),
		Import:   handler.NewImportHandler(importService),
		Setting:  handler.NewSettingHandler(settingService),
	}

	// ─── Start Background Worker ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	recalcWorker := worker.NewRecalcWorker(rdb, recalcService, log)
	go recalcWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server stopped")
}
