package backend

import (
	"context"

	"finanote/internal/ports"
	"finanote/internal/services"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult is a fully wired data layer.
type BackendResult struct {
	Expenses ports.ExpenseStore
	Users    ports.UserStore
	// Publisher is nil when no broker is configured.
	Publisher ports.EventPublisher

	ExpenseService *services.ExpenseService
	UserService    *services.UserService

	Health  Pinger
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (b BackendType) IsValid() bool {
	switch b {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

func (b BackendType) String() string {
	return string(b)
}

// Config holds what the factory needs to build a backend.
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
