package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/api"
	"github.com/temirrrr/job-tracker/internal/config"
	"github.com/temirrrr/job-tracker/internal/logging"
	"github.com/temirrrr/job-tracker/internal/store"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	logger.WithFields(logrus.Fields{
		"db":           cfg.DatabasePath,
		"port":         cfg.Port,
		"token_ttl":    cfg.TokenTTL.String(),
		"login_rate":   cfg.LoginRatePerMin,
		"cors_origins": cfg.Origins(),
	}).Info("jobtracker server starting")

	db, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(context.Background()); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	logger.WithFields(logrus.Fields{"path": cfg.DatabasePath}).Info("sqlite ready")

	s := api.New(st, api.Options{
		TokenTTL:        cfg.TokenTTL,
		LoginRatePerMin: cfg.LoginRatePerMin,
		CORSOrigins:     cfg.Origins(),
		Logger:          logger,
		Registerer:      prometheus.DefaultRegisterer,
		Gatherer:        prometheus.DefaultGatherer,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Listen(":" + cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("server: %v", err)
		}
	case sig := <-sigCh:
		logger.WithFields(logrus.Fields{"signal": sig.String()}).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Errorf("shutdown: %v", err)
		}
	}
}
