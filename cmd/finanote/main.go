package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"finanote/internal/backend"
	"finanote/internal/cli"
	apphttp "finanote/internal/http"
	applog "finanote/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Expenses:           be.ExpenseService,
		Users:              be.UserService,
		Health:             be.Health,
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	_, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cli.CloseAll(logger, cli.Closer{Name: "backend", Close: be.Cleanup})
	})

	logger.Info("Starting finanote server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", be.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		cli.CloseAll(logger, cli.Closer{Name: "backend", Close: be.Cleanup})
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
