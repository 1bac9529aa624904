// Package logging provides structured logging for the rebalance engine,
// with trace-id propagation through context.Context.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// TraceIDKey is the context key for the per-tick trace id.
	TraceIDKey ContextKey = "trace_id"
	// ServiceKey is the context key for the service name.
	ServiceKey ContextKey = "service"
)

// Logger wraps logrus.Logger with rebalance-engine-specific helpers.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a Logger for the named service.
func New(service, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, service: service}
}

// NewFromEnv builds a logger using LOG_LEVEL / LOG_FORMAT, defaulting to
// "info" / "json" when unset.
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext returns a log entry enriched with the trace id carried on ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

// NewTraceID returns a fresh trace id for one orchestrator tick.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// LogTick logs a summary of one orchestrator tick.
func (l *Logger) LogTick(ctx context.Context, routesEvaluated, operationsCreated int, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"routes_evaluated":   routesEvaluated,
		"operations_created": operationsCreated,
		"duration_ms":        duration.Milliseconds(),
	}).Info("tick complete")
}

// LogTransition logs a durable state machine transition.
func (l *Logger) LogTransition(ctx context.Context, entity, id, from, to, reason string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
		"from":   from,
		"to":     to,
		"reason": reason,
	}).Info("status transition")
}

// LogAdapterCall logs one bridge adapter call outcome.
func (l *Logger) LogAdapterCall(ctx context.Context, bridge, method string, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"bridge": bridge,
		"method": method,
	})
	if err != nil {
		entry.WithError(err).Warn("adapter call failed")
		return
	}
	entry.Debug("adapter call succeeded")
}

// LogRouteSkip logs a route evaluation that produced no transfer.
func (l *Logger) LogRouteSkip(ctx context.Context, origin, destination int64, tickerHash, reason string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"origin":      origin,
		"destination": destination,
		"ticker_hash": tickerHash,
		"reason":      reason,
	}).Warn("route skipped")
}

// defaultLogger is the package-level fallback logger for code paths invoked
// outside of an engine instance (e.g. package init, CLI flag parsing).
var defaultLogger *Logger

// InitDefault initializes the process-wide default logger.
func InitDefault(service, level, format string) {
	defaultLogger = New(service, level, format)
}

// Default returns the default logger, creating a basic one if unset.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("rebalancer", "info", "json")
	}
	return defaultLogger
}
