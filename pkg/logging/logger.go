package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an interface for logging
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

type contextKey string

// JobIDKey is the context key under which the current job ID is stored.
const JobIDKey contextKey = "job_id"

// WithJobID returns a context carrying the given job ID. Loggers attach it
// to every event emitted under that context.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// JobID returns the job ID stored in ctx, if any.
func JobID(ctx context.Context) (string, bool) {
	jobID, ok := ctx.Value(JobIDKey).(string)
	return jobID, ok
}

// ZeroLogger implements Logger using zerolog
type ZeroLogger struct {
	logger zerolog.Logger
}

// Option configures a ZeroLogger
type Option func(*ZeroLogger)

// WithLevel sets the minimum level for the logger
func WithLevel(level string) Option {
	return func(l *ZeroLogger) {
		switch level {
		case "debug":
			l.logger = l.logger.Level(zerolog.DebugLevel)
		case "info":
			l.logger = l.logger.Level(zerolog.InfoLevel)
		case "warn":
			l.logger = l.logger.Level(zerolog.WarnLevel)
		case "error":
			l.logger = l.logger.Level(zerolog.ErrorLevel)
		default:
			l.logger = l.logger.Level(zerolog.InfoLevel)
		}
	}
}

// New creates a new ZeroLogger writing to stdout
func New(options ...Option) *ZeroLogger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := &ZeroLogger{logger: zerolog.New(output).With().Timestamp().Logger()}

	for _, option := range options {
		option(logger)
	}

	return logger
}

func (l *ZeroLogger) emit(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	if jobID, ok := ctx.Value(JobIDKey).(string); ok {
		event = event.Str("job_id", jobID)
	}

	for k, v := range fields {
		event = event.Interface(k, v)
	}

	event.Msg(msg)
}

// Info logs an info message
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Warn(), msg, fields)
}

// Error logs an error message
func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Error(), msg, fields)
}

// Debug logs a debug message
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Debug(), msg, fields)
}
