// Package log wraps slog with a component-aware logger and request-scoped
// context helpers.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger tags every record with the component that emitted it.
type Logger struct {
	*slog.Logger
	base      *slog.Logger // same attributes minus the component
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	JSON      bool
	Output    io.Writer
	Handler   slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// New builds a Logger. Handler, when set, wins over Level, JSON and Output.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if config.JSON {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

func (l *Logger) With(args ...any) *Logger {
	base := l.base.With(args...)
	return &Logger{
		Logger:    base.With(FieldComponent, l.component),
		base:      base,
		component: l.component,
	}
}

// WithComponent returns a child logger for another component. The component
// attribute is replaced, not duplicated.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With(FieldComponent, component),
		base:      l.base,
		component: component,
	}
}

func (l *Logger) Component() string {
	return l.component
}

// LogFields logs fields at level.
func (l *Logger) LogFields(ctx context.Context, level slog.Level, msg string, fields LogFields) {
	delete(fields, FieldComponent)
	l.Logger.Log(ctx, level, msg, fields.ToSlice()...)
}

// SetDefault makes logger the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
