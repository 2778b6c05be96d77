package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// LogLevelEnvVar is the environment variable consulted when no level is given.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "SOCKETD_LOG_LEVEL"

// Well-known channel names. Anything else is treated as a file path.
const (
	ChannelStdout = "stdout"
	ChannelStderr = "stderr"
)

// Initialize creates a new logger with the specified level writing to channel.
// If level is empty, it checks the SOCKETD_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level, channel string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config, err := buildConfig(level, channel)
	if err != nil {
		return err
	}

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// buildConfig maps a level and channel onto a zap configuration.
func buildConfig(level, channel string) (zap.Config, error) {
	zapLevel, err := ParseLevel(level)
	if err != nil {
		return zap.Config{}, err
	}

	if channel == "" {
		channel = ChannelStdout
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{channel},
		ErrorOutputPaths: []string{"stderr"},
	}

	if isFileChannel(channel) {
		// Files are consumed by tools, not people
		config.Encoding = "json"
		config.EncoderConfig = zap.NewProductionEncoderConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return config, nil
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return config, nil
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", level)
	}
}

func isFileChannel(channel string) bool {
	return channel != ChannelStdout && channel != ChannelStderr
}

// SetLogger replaces the global logger. Tests use it to capture output.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger.
func GetLogger() *zap.Logger {
	return logger
}

func Debug(msg string, fields ...zap.Field) { logger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { logger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { logger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { logger.Error(msg, fields...) }

// LogConnection records a client connection entering or leaving the registry.
// event is either "connection_accepted" or the removal reason.
func LogConnection(connID, remoteAddr, event string) {
	logger.Info("Client connection",
		zap.String("conn_id", connID),
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// dumpLimit caps how much of a buffer LogRawBytes prints.
const dumpLimit = 256

// LogRawBytes logs a wire buffer as hex and printable ASCII at debug level.
func LogRawBytes(label string, data []byte) {
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}

	shown, truncated := data, false
	if len(shown) > dumpLimit {
		shown, truncated = shown[:dumpLimit], true
	}

	fields := []zap.Field{
		zap.Int("length", len(data)),
		zap.String("hex", hex.EncodeToString(shown)),
		zap.String("ascii", printable(shown)),
	}
	if truncated {
		fields = append(fields, zap.Bool("truncated", true))
	}
	logger.Debug(label, fields...)
}

// printable replaces bytes outside the printable ASCII range with '.'.
func printable(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b < ' ' || b > '~' {
			b = '.'
		}
		out[i] = b
	}
	return string(out)
}

// Sync flushes buffered entries. File channels need this before exit.
func Sync() {
	_ = logger.Sync()
}
