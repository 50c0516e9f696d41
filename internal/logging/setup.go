// Package logging builds the process logger: a colored console writer on
// stderr, optionally teed into a rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/zerowrap"
	"github.com/rs/zerolog"
)

// Config selects the level, format and sinks of the logger.
type Config struct {
	Level string `mapstructure:"level"`
	// Format is "console" (default) or "json".
	Format string     `mapstructure:"format"`
	File   FileConfig `mapstructure:"file"`
}

// FileConfig configures the rotating file sink.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Setup creates the logger described by cfg writing to stderr, which
// defaults to os.Stderr. The returned cleanup closes the file sink.
func Setup(cfg Config, stderr io.Writer) (zerowrap.Logger, func(), error) {
	if stderr == nil {
		stderr = os.Stderr
	}

	level := cfg.Level
	_, parseErr := zerolog.ParseLevel(level)
	if parseErr != nil || level == "" {
		level = zerolog.InfoLevel.String()
	}
	format := cfg.Format
	if format == "" {
		format = "console"
	}

	logConfig := zerowrap.Config{
		Level:  level,
		Format: format,
		Output: stderr,
	}

	cleanup := func() {}
	var log zerowrap.Logger
	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return zerowrap.Default(), cleanup, fmt.Errorf("log.file.path is required when file logging is enabled")
		}
		// owner only
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o700); err != nil {
			return zerowrap.Default(), cleanup, fmt.Errorf("failed to create logs directory: %w", err)
		}

		fileLog, closeFile, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
			Enabled:    true,
			Path:       cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		})
		if err != nil {
			return zerowrap.Default(), cleanup, fmt.Errorf("failed to create logger with file: %w", err)
		}
		log = fileLog
		if closeFile != nil {
			cleanup = closeFile
		}
	} else {
		log = zerowrap.New(logConfig)
	}

	if parseErr != nil && cfg.Level != "" {
		log.Warn().Str("invalid_level", cfg.Level).Msg("invalid log level, using info")
	}
	return log, cleanup, nil
}
