package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kintai-works/kintai-backend-go/internal/config"
	appHTTP "github.com/kintai-works/kintai-backend-go/internal/handler/http"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/cron"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/jwt"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/logger"
	"github.com/kintai-works/kintai-backend-go/internal/repository/postgresql"
	attendanceService "github.com/kintai-works/kintai-backend-go/internal/service/attendance"
	summaryService "github.com/kintai-works/kintai-backend-go/internal/service/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logOpts := logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	logWriter := logger.Writer(logOpts)
	logger.Init(logWriter, logOpts)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	txManager := postgresql.NewTxManager(db)
	userRepo := postgresql.NewUserRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	breakRepo := postgresql.NewBreakRepository(db)
	employeeCodeRepo := postgresql.NewEmployeeCodeRepository(db)
	summaryCacheRepo := postgresql.NewSummaryCacheRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	summarySvc := summaryService.NewSummaryService(
		attendanceRepo,
		userRepo,
		employeeCodeRepo,
		summaryCacheRepo,
		loc,
		cfg.Summary.CacheTTL,
	)
	attendanceSvc := attendanceService.NewAttendanceService(
		txManager,
		attendanceRepo,
		breakRepo,
		userRepo,
		summarySvc,
		attendanceService.NewWorkTimeClassifier(loc),
		loc,
	)

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	summaryHandler := appHTTP.NewSummaryHandler(summarySvc)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Env:         cfg.App.Env,
			CORSOrigins: cfg.App.CORSOrigins,
			LogLevel:    logger.ParseLevel(cfg.Log.Level),
			LogWriter:   logWriter,
		},
		JWTService,
		attendanceHandler,
		summaryHandler,
	)

	scheduler := cron.NewScheduler(loc)
	if cfg.Cron.Enabled {
		summaryJobs := cron.NewSummaryJobs(summarySvc)
		if err := summaryJobs.RegisterJobs(scheduler, cfg.Cron.SummaryRefreshSpec); err != nil {
			slog.Error("Failed to register cron jobs", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled && cfg.Cron.WarmOnStart {
		go scheduler.RunOnce(ctx)
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "timezone", cfg.App.Timezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	if cfg.Cron.Enabled {
		scheduler.Stop()
	}
}
