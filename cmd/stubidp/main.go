// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/civiclens/console-client/internal/config"
	"github.com/civiclens/console-client/internal/stubidp"
	"github.com/civiclens/console-client/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting stub identity provider",
		"address", cfg.StubIDP.Address(),
		"environment", cfg.App.Environment,
	)

	var tel *telemetry.Telemetry
	if cfg.Otel.Enabled {
		t, telErr := telemetry.New(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			tel = t
		}
	}

	accounts, err := stubidp.DevAccounts()
	if err != nil {
		return err
	}
	logger.Info("seeded dev accounts", "count", len(accounts))

	issuer, err := stubidp.NewTokenIssuer(
		cfg.StubIDP.Issuer,
		cfg.StubIDP.Audience,
		cfg.StubIDP.TokenExpire,
	)
	if err != nil {
		return err
	}

	handler := stubidp.NewHandler(
		stubidp.NewAccountStore(accounts),
		issuer,
		stubidp.NewLoginLimiter(
			cfg.StubIDP.LoginPerMinute,
			cfg.StubIDP.LoginBurst,
		),
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.StubIDP.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.StubIDP.ReadTimeout,
		WriteTimeout: cfg.StubIDP.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if listenErr := srv.ListenAndServe(); listenErr != nil &&
			!errors.Is(listenErr, http.ErrServerClosed) {
			errChan <- listenErr
			return
		}
		errChan <- nil
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.StubIDP.ShutdownTimeout,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if tel != nil {
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	logger.Info("stub identity provider stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
