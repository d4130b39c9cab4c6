// Package logging provides structured logging configuration.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration options.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console
}

// New creates a new configured zap logger.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return nil, err
		}
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
	}

	var zcfg zap.Config
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build(zap.AddCaller(), zap.AddCallerSkip(0))
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("service", "autosequence"))

	return logger, nil
}

// Sync flushes any buffered log entries.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		Level:  getenv("AUTOSEQ_LOG_LEVEL", "info"),
		Format: getenv("AUTOSEQ_LOG_FORMAT", "json"),
	}
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Component returns a zap field for the component name.
func Component(name string) zap.Field { return zap.String("component", name) }

// Port returns a zap field for the port number.
func Port(port int) zap.Field { return zap.Int("port", port) }

// Addr returns a zap field for an address.
func Addr(addr string) zap.Field { return zap.String("addr", addr) }

// Domain returns a zap field for a participant domain.
func Domain(domain string) zap.Field { return zap.String("domain", domain) }

// Method returns a zap field for an HTTP method.
func Method(method string) zap.Field { return zap.String("method", method) }

// URL returns a zap field for a request URL.
func URL(url string) zap.Field { return zap.String("url", url) }

// RequestID returns a zap field for a ledger request id.
func RequestID(id int64) zap.Field { return zap.Int64("request_id", id) }

// TabID returns a zap field for the originating browser tab.
func TabID(tabID int) zap.Field { return zap.Int("tab_id", tabID) }

// StatusCode returns a zap field for an HTTP status code.
func StatusCode(code int) zap.Field { return zap.Int("status_code", code) }

// EventKind returns a zap field for a network event kind.
func EventKind(kind string) zap.Field { return zap.String("event_kind", kind) }

// Viewer returns a zap field for a viewer id.
func Viewer(id string) zap.Field { return zap.String("viewer", id) }

// ResourceType returns a zap field for a raw resource type tag.
func ResourceType(t string) zap.Field { return zap.String("resource_type", t) }
