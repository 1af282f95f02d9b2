package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomres/internal/audit"
	"roomres/internal/clock"
	"roomres/internal/config"
	"roomres/internal/conflict"
	"roomres/internal/database"
	"roomres/internal/events"
	"roomres/internal/locker"
	"roomres/internal/metrics"
	"roomres/internal/notify"
	"roomres/internal/service"
	"roomres/internal/sweeper"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ROOMRES_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.SyncCatalog(ctx, cfg.CatalogRooms(), cfg.CatalogEquipment()); err != nil {
		logger.Fatal().Err(err).Msg("failed to sync catalog")
	}

	var rdb *redis.Client
	var locks locker.Locker
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locks = locker.NewRedis(rdb)
		logger.Info().Str("address", cfg.Redis.Address).Msg("using redis room locks")
	} else {
		locks = locker.NewLocal()
	}

	clk := clock.Real{}
	detector := conflict.NewDetector(db, db)
	bus := events.NewBus()
	recorder := audit.NewRecorder(db, clk, &logger)

	svc := service.NewReservationService(
		db, detector, locks, clk, bus, recorder,
		service.Rules{MaxAdvance: cfg.MaxAdvance()},
		&logger,
	)

	notifier := notify.New(notify.Config{
		Rate:        cfg.Notify.Rate,
		Burst:       cfg.Notify.Burst,
		QueueSize:   cfg.Notify.QueueSize,
		RetryDelays: notify.DefaultConfig().RetryDelays,
	}, notify.NewLogSink(&logger), &logger)
	notifier.SubscribeAll(bus)
	notifier.Start(ctx)
	defer notifier.Stop()

	sweepConfig := sweeper.DefaultConfig()
	sweepConfig.Interval = cfg.SweepInterval()
	sweep := sweeper.New(sweepConfig, db, svc, clk, &logger)
	sweep.Start(ctx)
	defer sweep.Stop()

	auditSvc := audit.NewService(audit.Config{
		ExportDir:     cfg.Audit.ExportDir,
		RetentionDays: cfg.Audit.RetentionDays,
		ExportOnStart: cfg.Audit.ExportOnStart,
	}, db, clk, &logger)
	auditSvc.Start()
	defer auditSvc.Stop()

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, db, cfg, &logger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("reservation server started")
	<-ctx.Done()
	logger.Info().Msg("shutting down")
}

func startBackupLoop(ctx context.Context, db *database.DB, cfg *config.Config, logger *zerolog.Logger) {
	dir := cfg.Backup.Dir
	if dir == "" {
		dir = "backups"
	}

	ticker := time.NewTicker(cfg.BackupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.BackupTo(ctx, dir); err != nil {
				logger.Error().Err(err).Msg("backup failed")
				continue
			}
			deleted, err := db.CleanupBackups(dir, cfg.BackupRetention())
			if err != nil {
				logger.Error().Err(err).Msg("backup cleanup failed")
			} else if deleted > 0 {
				logger.Info().Int("deleted", deleted).Msg("old backups removed")
			}
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
