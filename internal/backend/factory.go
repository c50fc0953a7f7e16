package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanote/internal/amqp"
	"finanote/internal/memory"
	"finanote/internal/ports"
	"finanote/internal/services"
	"finanote/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result  *BackendResult
		closers []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		closers = append(closers, repo.Close)
		result = &BackendResult{Expenses: repo, Users: repo, Health: repo}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store := memory.New()
		result = &BackendResult{Expenses: store, Users: store, Health: alwaysUp{}}
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// The broker is optional; writes succeed without it.
	var publisher ports.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Publisher = publisher
	result.ExpenseService = services.NewExpenseService(result.Expenses, result.Users, publisher)
	result.UserService = services.NewUserService(result.Users)
	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return result, nil
}

type alwaysUp struct{}

func (alwaysUp) Ping(context.Context) error { return nil }
