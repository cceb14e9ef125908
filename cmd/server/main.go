package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/agrikit/rsbsa-validator/internal/config"
	"github.com/agrikit/rsbsa-validator/internal/core"
	"github.com/agrikit/rsbsa-validator/internal/history"
	"github.com/agrikit/rsbsa-validator/internal/logging"
	"github.com/agrikit/rsbsa-validator/internal/mailer"
	"github.com/agrikit/rsbsa-validator/internal/registry"
	"github.com/agrikit/rsbsa-validator/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"registry_url", cfg.Matching.RegistryURL,
		"identifier_format", cfg.Matching.IdentifierFormat,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Run history persistence is optional; without a database URL the
	// service runs with in-memory state only.
	var store core.RunStore
	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}

		historyStore, err := history.NewStore(ctx, pool)
		if err != nil {
			slog.Error("failed to initialize run history", "error", err)
			os.Exit(1)
		}
		store = historyStore

		// Background cleanup of old run summaries
		jobCtx, cancelJobs := context.WithCancel(context.Background())
		defer cancelJobs()
		go historyStore.StartRetentionScheduler(jobCtx, history.RetentionConfig{
			RetentionDays: cfg.Retention.Days,
			CheckInterval: cfg.Retention.CheckInterval,
		})
	} else {
		slog.Warn("DATABASE_URL not set, run history persistence disabled")
	}

	// Registry client and batch matcher
	client := registry.NewClient(cfg.Matching.RegistryURL,
		registry.WithAPIKey(cfg.Matching.RegistryAPIKey),
		registry.WithRequestTimeout(cfg.Matching.RequestTimeout),
	)
	matcher := registry.NewMatcher(client, cfg.Matching.BatchSize, cfg.Matching.BatchPause)

	limiter := core.NewMatchLimiter(cfg.Matching.MaxConcurrent, cfg.Matching.MaxWaitTime)
	format := core.IdentifierFormat(strings.ToLower(cfg.Matching.IdentifierFormat))
	service := core.NewService(store, matcher, format, limiter)

	// Report delivery is optional
	var mail mailer.Mailer
	if cfg.Email.Host != "" {
		from := cfg.Email.From
		if from == "" {
			from = cfg.Email.Username
		}
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     from,
		})
		slog.Info("report delivery enabled", "smtp_host", cfg.Email.Host)
	} else {
		slog.Warn("SMTP_HOST not set, report delivery disabled")
	}

	server := web.NewServer(service, mail, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active matching runs to complete (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for matching runs to complete", "active", status.Active)
			if err := service.WaitForMatches(shutdownCtx); err != nil {
				slog.Warn("matching runs did not complete in time", "error", err)
			} else {
				slog.Info("all matching runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
