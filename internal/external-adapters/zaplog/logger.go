// Package zaplog implements the domain logger on top of zap.
package zaplog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ochairo/keg/internal/domain/interfaces"
)

// Config selects the log level and an optional log file
type Config struct {
	Level    string
	FilePath string
	Console  io.Writer // defaults to os.Stderr
}

// Logger adapts a *zap.Logger to interfaces.Logger
type Logger struct {
	zl   *zap.Logger
	file *os.File
}

// New builds a logger writing colored console output and, when FilePath is
// set, an uncolored copy to the file
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)

	encoderCfg := zap.NewDevelopmentConfig().EncoderConfig
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(console), level),
	}

	var file *os.File
	if path := strings.TrimSpace(cfg.FilePath); path != "" {
		fileCore, handle, err := buildFileCore(encoderCfg, path, level)
		if err != nil {
			return nil, err
		}
		file = handle
		cores = append(cores, fileCore)
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{zl: zl, file: file}, nil
}

// Wrap adapts an existing zap logger
func Wrap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl.WithOptions(zap.AddCallerSkip(1))}
}

func buildFileCore(encoderCfg zapcore.EncoderConfig, path string, level zapcore.Level) (zapcore.Core, *os.File, error) {
	cleanedPath := filepath.Clean(path)
	dir := filepath.Dir(cleanedPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating log directory %q: %w", dir, err)
		}
	}

	//nolint:gosec // G304: log file path is chosen by the user
	file, err := os.OpenFile(cleanedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", cleanedPath, err)
	}

	fileEncoderCfg := encoderCfg
	fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), zapcore.AddSync(file), level)
	return core, file, nil
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.zl.Debug(msg, convert(fields)...)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.zl.Info(msg, convert(fields)...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.zl.Warn(msg, convert(fields)...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.zl.Error(msg, convert(fields)...)
}

// Close flushes buffered entries and closes the log file
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func convert(fields []interfaces.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
