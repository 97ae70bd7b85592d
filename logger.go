// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package mgmtfe

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/golang/glog"
)

// MaxLogValueLength limits the length of a single logged value
const MaxLogValueLength = 1024

// Logger is the pluggable structured logger used by the client.
//
// Messages come with alternating key/value pairs. The library ships three
// implementations:
//   - NoOpLogger: discards everything (default)
//   - DefaultLogger: level-filtered output through the standard log package
//   - GlogLogger: forwards to github.com/golang/glog
//
// Example custom logger integration:
//
//	type SlogAdapter struct {
//	    logger *slog.Logger
//	}
//
//	func (s *SlogAdapter) Debug(ctx context.Context, msg string, keysAndValues ...any) {
//	    s.logger.DebugContext(ctx, msg, keysAndValues...)
//	}
//	// ... Info, Warn, Error
//
//	client, _ := mgmtfe.NewClient(ctx, "vtysh", handler,
//	    mgmtfe.WithLogger(&SlogAdapter{logger: slog.Default()}))
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel represents the severity threshold for logging
type LogLevel int

const (
	// LogLevelDebug enables all log levels (most verbose)
	LogLevelDebug LogLevel = iota

	// LogLevelInfo enables Info, Warn, and Error logs
	LogLevelInfo

	// LogLevelWarn enables Warn and Error logs
	LogLevelWarn

	// LogLevelError enables only Error logs
	LogLevelError

	// LogLevelNone disables all logging
	LogLevelNone
)

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// DefaultLogger writes through the standard log package with a level threshold
//
// Output format: [LEVEL] FE-CLIENT: message key1=value1 key2=value2
//
// Example:
//
//	logger := mgmtfe.NewDefaultLogger(mgmtfe.LogLevelDebug)
//	client, _ := mgmtfe.NewClient(ctx, "vtysh", handler, mgmtfe.WithLogger(logger))
type DefaultLogger struct {
	level LogLevel
}

// NewDefaultLogger creates a DefaultLogger with the specified log level
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{level: level}
}

// Debug logs a debug message with structured key-value pairs
func (l *DefaultLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues...)
}

// Info logs an informational message with structured key-value pairs
func (l *DefaultLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with structured key-value pairs
func (l *DefaultLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues...)
}

// Error logs an error message with structured key-value pairs
func (l *DefaultLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues...)
}

func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues ...any) {
	if level < l.level || l.level == LogLevelNone {
		return
	}
	log.Println("[" + level.String() + "] FE-CLIENT: " + msg + formatKeysAndValues(keysAndValues))
}

// formatKeysAndValues renders " k=v k=v" with every key and value sanitized.
// An odd trailing key is rendered with an explicit <MISSING> value.
func formatKeysAndValues(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(keysAndValues) * 25)
	for i := 0; i < len(keysAndValues); i += 2 {
		builder.WriteString(" ")
		builder.WriteString(sanitizeLogValue(keysAndValues[i]))
		builder.WriteString("=")
		if i+1 < len(keysAndValues) {
			builder.WriteString(sanitizeLogValue(keysAndValues[i+1]))
		} else {
			builder.WriteString("<MISSING>")
		}
	}
	return builder.String()
}

// sanitizeLogValue neutralizes log injection in a value: line breaks and tabs
// become spaces, other control characters and ESC become '.', zero-width
// characters are dropped and right-to-left override becomes a space. Values
// longer than MaxLogValueLength are truncated.
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}

	var builder strings.Builder
	builder.Grow(len(str))
	for len(str) > 0 {
		r, size := utf8.DecodeRuneInString(str)
		str = str[size:]
		switch {
		case r == utf8.RuneError && size <= 1:
			builder.WriteByte('.')
		case r == '\n' || r == '\r' || r == '\t' || r == 0x0C || r == 0x202E:
			builder.WriteByte(' ')
		case r == 0x200B || r == 0x200C || r == 0x200D || r == 0xFEFF:
		case r < 32 || r == 127:
			builder.WriteByte('.')
		default:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// GlogLogger forwards client logs to github.com/golang/glog.
//
// Debug messages are emitted at verbosity level Verbosity (default 2), so they
// show only when glog runs with -v=2 or higher.
//
// Example:
//
//	flag.Parse() // glog registers -v, -logtostderr, ...
//	client, _ := mgmtfe.NewClient(ctx, "vtysh", handler,
//	    mgmtfe.WithLogger(mgmtfe.NewGlogLogger()))
type GlogLogger struct {
	Verbosity glog.Level
}

// NewGlogLogger creates a GlogLogger logging debug messages at verbosity 2
func NewGlogLogger() *GlogLogger {
	return &GlogLogger{Verbosity: 2}
}

// Debug logs at the configured glog verbosity
func (g *GlogLogger) Debug(_ context.Context, msg string, keysAndValues ...any) {
	glog.V(g.Verbosity).Infof("[FE-CLIENT] %s%s", msg, formatKeysAndValues(keysAndValues))
}

// Info logs through glog.Infof
func (g *GlogLogger) Info(_ context.Context, msg string, keysAndValues ...any) {
	glog.Infof("[FE-CLIENT] %s%s", msg, formatKeysAndValues(keysAndValues))
}

// Warn logs through glog.Warningf
func (g *GlogLogger) Warn(_ context.Context, msg string, keysAndValues ...any) {
	glog.Warningf("[FE-CLIENT] %s%s", msg, formatKeysAndValues(keysAndValues))
}

// Error logs through glog.Errorf
func (g *GlogLogger) Error(_ context.Context, msg string, keysAndValues ...any) {
	glog.Errorf("[FE-CLIENT] %s%s", msg, formatKeysAndValues(keysAndValues))
}

// NoOpLogger discards all log messages. It is the default logger.
type NoOpLogger struct{}

// Debug discards the log message
func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}

// Info discards the log message
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any) {}

// Warn discards the log message
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any) {}

// Error discards the log message
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}
