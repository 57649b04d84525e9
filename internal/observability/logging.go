// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewLogger builds a JSON logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &Logger{Logger: slog.New(handler)}
}

// SetGlobalLogger replaces GlobalLogger, e.g. to silence or capture output in tests.
func SetGlobalLogger(l *Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
)

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableStoreLogging   bool
	EnableGatewayLogging bool
	EnableWSLogging      bool
}

var (
	// Config holds the current logging configuration.
	Config = LoggingConfig{
		EnableStoreLogging:   true,
		EnableGatewayLogging: true,
		EnableWSLogging:      true,
	}
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// EnsureCorrelationID returns ctx carrying a correlation ID, generating one if absent.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if ExtractCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, GenerateCorrelationID())
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// StoreLogger provides structured logging for state container dispatches.
type StoreLogger struct {
	storeName string
}

// NewStoreLogger creates a new StoreLogger for the named store.
func NewStoreLogger(storeName string) *StoreLogger {
	return &StoreLogger{storeName: storeName}
}

// LogDispatch logs one reduced intent at debug level.
func (l *StoreLogger) LogDispatch(intentType string, seq uint64) {
	if !Config.EnableStoreLogging {
		return
	}
	GlobalLogger.Debug("intent dispatched",
		slog.String("store", l.storeName),
		slog.String("intent", intentType),
		slog.Uint64("seq", seq),
	)
}

// LogRehydrate logs the outcome of loading a persisted snapshot.
func (l *StoreLogger) LogRehydrate(ctx context.Context, restored bool, reason string) {
	if !Config.EnableStoreLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "store rehydrate",
		slog.String("store", l.storeName),
		slog.Bool("restored", restored),
		slog.String("reason", reason),
	)
}

// LogPersistError logs a storage failure that was degraded rather than raised.
func (l *StoreLogger) LogPersistError(ctx context.Context, operation string, err error) {
	if !Config.EnableStoreLogging {
		return
	}
	GlobalLogger.WarnContext(ctx, "persistence degraded",
		slog.String("store", l.storeName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// GatewayLogger provides structured logging for backend REST calls.
type GatewayLogger struct {
	gateway string
}

// NewGatewayLogger creates a new GatewayLogger for the named gateway.
func NewGatewayLogger(gateway string) *GatewayLogger {
	return &GatewayLogger{gateway: gateway}
}

// LogRequest logs a completed backend request.
func (l *GatewayLogger) LogRequest(ctx context.Context, method, path string, status int, elapsed time.Duration) {
	if !Config.EnableGatewayLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "gateway request",
		slog.String("gateway", l.gateway),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("elapsed", elapsed),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a failed backend request.
func (l *GatewayLogger) LogError(ctx context.Context, method, path string, err error) {
	if !Config.EnableGatewayLogging {
		return
	}
	GlobalLogger.ErrorContext(ctx, "gateway error",
		slog.String("gateway", l.gateway),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, clientID string) {
	if !Config.EnableWSLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("client_id", clientID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, clientID string, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	GlobalLogger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("client_id", clientID),
		slog.String("reason", reason),
	)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "async operation failed", attrs...)
}
