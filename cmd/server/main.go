// Command server runs the TuniShield HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"tunishield/internal/auth"
	"tunishield/internal/community"
	"tunishield/internal/config"
	"tunishield/internal/database"
	"tunishield/internal/email"
	"tunishield/internal/logging"
	"tunishield/internal/quiz"
	redisx "tunishield/internal/redis"
	"tunishield/internal/server"
)

const (
	shutdownTimeout = 30 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Log, cfg.Environment)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logCloser.Close()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	var (
		states auth.StateStore
		audit  server.AuditTrail
	)
	redisClient, err := redisx.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable; google sign-in and audit log disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		states = &auth.RedisStateStore{Redis: redisClient, TTL: auth.DefaultOAuthState}
		audit = &auth.AuditLogger{Redis: redisClient, MaxLen: cfg.AuditMaxLen}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := auth.NewMetrics(registry)

	repo := auth.NewRepository(db)
	sessions := auth.NewSessionManager(repo, logger, metrics, auth.SessionOptions{
		Secret:       cfg.SessionSecret,
		TTL:          cfg.SessionTTL,
		SecureCookie: !cfg.Development(),
	})
	authSvc := auth.NewService(repo, repo, sessions, email.New(cfg.Email, logger), metrics, logger, auth.Options{
		CodeTTL:     cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		LogCodes:    cfg.Development(),
	})

	api := server.New(cfg, server.Deps{
		Auth:      authSvc,
		Google:    auth.NewGoogleProvider(cfg.Google),
		States:    states,
		Audit:     audit,
		Quiz:      quiz.NewService(quiz.NewRepository(db, uuid.NewString), logger, nil, uuid.NewString),
		Community: community.NewService(community.NewRepository(db), logger, nil, uuid.NewString),
		Registry:  registry,
		Logger:    logger,
	})

	go purgeLoop(ctx, authSvc, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.Bool("smtp", cfg.Email.Enabled()),
			zap.Bool("google", cfg.Google.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// purgeLoop removes expired codes and sessions until ctx is cancelled.
func purgeLoop(ctx context.Context, svc *auth.Service, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			codes, sessions, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired records failed", zap.Error(err))
				continue
			}
			if codes > 0 || sessions > 0 {
				logger.Info("purged expired records", zap.Int64("codes", codes), zap.Int64("sessions", sessions))
			}
		}
	}
}
