package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level          string // debug, info, warn, error
	Format         string // json, pretty
	FileEnabled    bool
	FilePath       string // logs directory
	RotationSize   int    // MB
	RetentionDays  int
	ServiceName    string
	ServiceVersion string
}

// errorOnly forwards ERROR and above to the wrapped writer.
type errorOnly struct {
	io.Writer
}

func (w errorOnly) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.Write(p)
}

func rotating(dir, name string, cfg Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    cfg.RotationSize,
		MaxAge:     cfg.RetentionDays,
		MaxBackups: 10,
		Compress:   true,
	}
}

// Init configures the global zerolog logger.
func Init(cfg Config) error {
	return InitWithConsole(cfg, os.Stderr)
}

// InitWithConsole is Init with a custom console destination.
func InitWithConsole(cfg Config, console io.Writer) error {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	if cfg.Format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"})
	} else {
		writers = append(writers, console)
	}
	if cfg.FileEnabled {
		if err := os.MkdirAll(cfg.FilePath, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		writers = append(writers,
			rotating(cfg.FilePath, "app.log", cfg),
			errorOnly{rotating(cfg.FilePath, "error.log", cfg)},
		)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.ServiceVersion).
		Logger()

	log.Debug().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Bool("file_enabled", cfg.FileEnabled).
		Msg("logger initialized")
	return nil
}

// NewAccessLogger returns a logger that writes HTTP access lines to their own
// rotating file, or the global logger when logPath is empty.
func NewAccessLogger(logPath string, rotationSize, retentionDays int) zerolog.Logger {
	if logPath == "" {
		return log.Logger
	}
	if err := os.MkdirAll(logPath, 0o755); err != nil {
		log.Warn().Err(err).Msg("cannot create access log directory, using default logger")
		return log.Logger
	}
	return zerolog.New(rotating(logPath, "access.log", Config{RotationSize: rotationSize, RetentionDays: retentionDays})).
		With().
		Timestamp().
		Str("type", "access").
		Logger()
}
