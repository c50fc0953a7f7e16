package main

import (
	"context"
	"errors"
	"os"

	"finanote/internal/amqp"
	"finanote/internal/cli"
	applog "finanote/internal/log"
	"finanote/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	// The watcher reads the same database the API writes to, so an
	// in-memory store would never see any expenses.
	if cfg.DataBackend != "sqlite" {
		logger.Error("finanote-worker requires DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("finanote-worker requires AMQP_URL")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		cli.CloseAll(logger, cli.Closer{Name: "sqlite", Close: repo.Close})
		os.Exit(1)
	}
	closers := []cli.Closer{
		{Name: "sqlite", Close: repo.Close},
		{Name: "amqp", Close: client.Close},
	}

	watcher := worker.NewBudgetWatcher(repo, repo)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	logger.Info("Starting finanote-worker", "queue", cfg.AMQPQueue)
	err = client.ConsumeExpenseEvents(applog.NewContext(ctx, logger), watcher.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		cli.CloseAll(logger, closers...)
		os.Exit(1)
	}

	<-done
	cli.CloseAll(logger, closers...)
	logger.Info("Worker stopped")
}
