package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured JSON logger that stamps every entry with service, action, hostname and request id.
type Logger struct {
	service  string
	hostname string
	z        *zap.Logger
}

// NewLogger creates a production logger writing JSON to stdout.
func NewLogger(service string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.StacktraceKey = "stack"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), level)
	return newWithZap(service, zap.New(core, zap.AddStacktrace(zap.ErrorLevel)))
}

// NewNop returns a logger that discards everything.
func NewNop(service string) *Logger {
	return newWithZap(service, zap.NewNop())
}

func newWithZap(service string, z *zap.Logger) *Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Logger{
		service:  service,
		hostname: hostname,
		z:        z,
	}
}

// Define an unexported type for context keys.
type ctxKey string

// requestIDKey is the context key for the request ID.
const requestIDKey ctxKey = "request_id"

// WithRequestID returns a context carrying a request id (useful for HTTP/mq hops).
func (logger *Logger) WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// RequestIDFrom returns the request id saved in the context.
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Sync flushes buffered entries.
func (logger *Logger) Sync() {
	_ = logger.z.Sync()
}

func (logger *Logger) fields(ctx context.Context, action string, details any) []zap.Field {
	fs := []zap.Field{
		zap.String("service", logger.service),
		zap.String("action", action),
		zap.String("hostname", logger.hostname),
		zap.String("request_id", RequestIDFrom(ctx)),
	}
	if details != nil {
		fs = append(fs, zap.Any("details", details))
	}
	return fs
}

// -- Logger helper functions --

func (logger *Logger) Info(ctx context.Context, action, msg string, details any) {
	logger.z.Info(msg, logger.fields(ctx, action, details)...)
}

func (logger *Logger) Debug(ctx context.Context, action, msg string, details any) {
	logger.z.Debug(msg, logger.fields(ctx, action, details)...)
}

// Warn is for degraded but handled conditions, such as a channel that could not deliver.
func (logger *Logger) Warn(ctx context.Context, action, msg string, details any) {
	logger.z.Warn(msg, logger.fields(ctx, action, details)...)
}

func (logger *Logger) Error(ctx context.Context, action, msg string, err error) {
	fs := logger.fields(ctx, action, nil)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	logger.z.Error(msg, fs...)
}
