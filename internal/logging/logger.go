package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/config"
)

// Field keys shared by every component that logs.
const (
	FieldRequestID  = "request_id"
	FieldDownloadID = "download_id"
	FieldStep       = "step"
	FieldPhase      = "phase"
	FieldTransport  = "transport"
	FieldGeneration = "generation"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// File receives the log. Empty means stderr, which is only safe in line
	// mode since the TUI owns the terminal.
	File        string
	Development bool
}

// New constructs a zap logger writing JSON lines to opts.File.
func New(opts Options) (*zap.Logger, error) {
	output := "stderr"
	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		output = path
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	cfg.Development = opts.Development
	cfg.Sampling = nil
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = !opts.Development

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// NewFromConfig creates a logger from application config. debug raises the
// level regardless of the configured one.
func NewFromConfig(cfg *config.Config, debug bool) (*zap.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	return New(Options{Level: level, File: cfg.Logging.File, Development: debug})
}

// ParseLevel maps a config level to zap, defaulting to info.
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
