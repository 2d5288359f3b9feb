// Package logging configures the global zerolog logger. The stdio MCP server
// owns stdout, so nothing is ever logged there.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"lighthouse/internal/config"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Bootstrap installs a console only logger for the time before the
// configuration is loaded.
func Bootstrap(verbose bool) {
	zerolog.SetGlobalLevel(Level("", verbose))
	log.Logger = New(consoleWriter())
}

// Init replaces the global logger with the configured sinks: the console on
// stderr and a size rotated file in cfg.Dir. The returned closer releases
// the log file.
func Init(cfg config.LogConfig, verbose bool) (io.Closer, error) {
	zerolog.SetGlobalLevel(Level(cfg.Level, verbose))

	fileWriter, err := rotatingFile(cfg)
	if err != nil {
		return nil, err
	}

	var sink io.Writer = fileWriter
	if cfg.Console {
		sink = zerolog.MultiLevelWriter(consoleWriter(), fileWriter)
	}
	log.Logger = New(sink)

	log.Debug().
		Str("file", fileWriter.Filename).
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("max_backups", cfg.MaxBackups).
		Msg("Logging initialized")
	return fileWriter, nil
}

// Level resolves the configured level name. Verbose always means debug and an
// empty or unknown name means info.
func Level(name string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// New builds a timestamped logger on w. Tests use it to capture output.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		With().
		Timestamp().
		Str("app", "lighthouse").
		Logger()
}

func consoleWriter() zerolog.ConsoleWriter {
	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}
}

// rotatingFile checks that the log file can be written before handing it to
// lumberjack, which would otherwise only fail on the first log line.
func rotatingFile(cfg config.LogConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", cfg.Dir, err)
	}

	path := filepath.Join(cfg.Dir, cfg.File)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("log file %q is not writable: %w", path, err)
	}
	_ = f.Close()

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}, nil
}
