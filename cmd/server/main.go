package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/backup"
	"github.com/mveron/foliotrack/internal/config"
	"github.com/mveron/foliotrack/internal/database"
	"github.com/mveron/foliotrack/internal/events"
	"github.com/mveron/foliotrack/internal/modules/alerts"
	"github.com/mveron/foliotrack/internal/modules/analytics"
	"github.com/mveron/foliotrack/internal/modules/goals"
	"github.com/mveron/foliotrack/internal/modules/history"
	"github.com/mveron/foliotrack/internal/modules/portfolio"
	"github.com/mveron/foliotrack/internal/modules/recommendations"
	"github.com/mveron/foliotrack/internal/scheduler"
	"github.com/mveron/foliotrack/internal/server"
	"github.com/mveron/foliotrack/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Foliotrack")

	// Main database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Events: structured log plus websocket fan-out
	hub := events.NewHub(log)
	eventManager := events.NewManager(log, hub)

	// History and derived statistics
	historyDB := history.NewHistoryDB(cfg.HistoryDir, log)
	returnsCache := history.NewReturnsCache(cfg.HistoryDir+"/cache", historyDB, log)
	symbolStats := analytics.NewSymbolStats(returnsCache, cfg.BenchmarkSymbol, log)

	// Portfolio
	positionRepo := portfolio.NewPositionRepository(db.Conn(), log)
	txRepo := portfolio.NewTransactionRepository(db.Conn(), log)
	portfolioService := portfolio.NewService(positionRepo, txRepo, symbolStats, historyDB, log)

	// Alerts and goals
	alertRepo := alerts.NewRepository(db.Conn(), log)
	alertEvaluator := alerts.NewEvaluator()
	goalRepo := goals.NewRepository(db.Conn(), log)
	goalTracker := goals.NewTracker()

	// Recommendations
	generator := recommendations.NewGenerator(recommendations.Thresholds{
		ConcentrationLimitPct: cfg.ConcentrationLimitPct,
		HighVolatilityPct:     cfg.HighVolatilityPct,
	}, log)

	// Analytics facade ties it all together
	facade := analytics.NewFacade(analytics.Deps{
		Portfolio:   portfolioService,
		HistoryDB:   historyDB,
		Cache:       returnsCache,
		Stats:       symbolStats,
		Aggregator:  analytics.NewAggregator(cfg.RiskFreeRate, log),
		Correlation: analytics.NewCorrelationEngine(log),
		AlertRepo:   alertRepo,
		AlertEval:   alertEvaluator,
		GoalRepo:    goalRepo,
		Tracker:     goalTracker,
		Recs:        generator,
		Events:      eventManager,
		Benchmark:   cfg.BenchmarkSymbol,
	}, log)

	// Scheduler and background jobs
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	alertJob := alerts.NewCheckJob(alertRepo, alertEvaluator, facade, eventManager, log)
	if err := sched.AddJob(cfg.AlertCheckSchedule, alertJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register alert check job")
	}

	registerBackupJob(sched, cfg, eventManager, log)

	// HTTP server
	srv := server.New(server.Deps{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Hub:       hub,
		Scheduler: sched,
		Portfolio: portfolio.NewHandler(positionRepo, txRepo, portfolioService, log),
		Analytics: analytics.NewHandler(facade, log),
		Alerts:    alerts.NewHandler(alertRepo, log),
		Goals:     goals.NewHandler(goalRepo, goalTracker, portfolioService, log),
		History:   history.NewHandler(historyDB, returnsCache, eventManager, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// registerBackupJob wires the S3 backup when a bucket is configured
func registerBackupJob(sched *scheduler.Scheduler, cfg *config.Config, em *events.Manager, log zerolog.Logger) {
	backupCfg := backup.Config{
		Bucket:    cfg.BackupBucket,
		Region:    cfg.BackupRegion,
		AccessKey: cfg.BackupAccessKey,
		SecretKey: cfg.BackupSecretKey,
	}
	if !backupCfg.Enabled() {
		log.Info().Msg("Backups disabled, no bucket configured")
		return
	}

	job, err := backup.NewJob(context.Background(), backupCfg, cfg.DatabasePath, cfg.HistoryDir, em, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backup job")
	}
	if err := sched.AddJob(cfg.BackupSchedule, job); err != nil {
		log.Fatal().Err(err).Msg("Failed to register backup job")
	}
}
