// Package logging routes the standard logger to stdout and, when a
// directory is configured, a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/saviobatista/ais-logger/internal/config"
)

// Setup configures the standard logger for the named service. The returned
// closer flushes the rotating file, if any.
func Setup(service string, cfg config.LogConfig) (io.Closer, error) {
	return SetupTo(service, cfg, os.Stdout)
}

// SetupTo is Setup with console output sent to w instead of stdout
func SetupTo(service string, cfg config.LogConfig, w io.Writer) (io.Closer, error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.Directory == "" {
		log.SetOutput(w)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, service+".log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(w, rotator))
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
