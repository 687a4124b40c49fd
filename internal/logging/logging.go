package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls how akin's background commands (index, scan, and the
// hook spawned by the editor on every keystroke) log their activity. The
// hook in particular must never block on I/O, so log writes always go
// through a RotatingWriter rather than an unbounded file.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr whether to also write to stderr (default: true).
	WriteToStderr bool
	// ImmediateSync fsyncs the log file after every write. The hook only
	// ever writes a handful of lines per invocation, so the fsync cost is
	// negligible and worth paying for a log a human might `tail -f` mid-edit.
	// A full `akin index`/`akin scan` run can log one line per extracted
	// unit, where fsync-per-write would noticeably slow down indexing; those
	// commands disable it. Default: true.
	ImmediateSync bool
}

// DefaultConfig returns the logging configuration akin's CLI runs with day
// to day: ~/.vimo/akin/logs/akin.log, rotated at 10MB, keeping 5 files.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
		ImmediateSync: true,
	}
}

// FromLevel builds a Config at the given level (typically
// config.Config.Server.LogLevel), falling back to DefaultConfig's level
// when level is empty.
func FromLevel(level string) Config {
	cfg := DefaultConfig()
	if level != "" {
		cfg.Level = level
	}
	return cfg
}

// Setup opens cfg's rotating log file and returns a ready-to-use logger
// plus a cleanup function that flushes and closes it. Every akin
// subcommand calls this once in its PersistentPreRunE and defers the
// cleanup to PersistentPostRunE.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}
	writer.SetImmediateSync(cfg.ImmediateSync)

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// parseLevel converts a config-file/CLI level string to slog.Level,
// defaulting to info for anything it doesn't recognize.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString exposes parseLevel to callers outside this package that
// need to resolve a configured level string (e.g. server.log_level) to a
// slog.Level without going through Setup.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
