package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/walteh/shredsync/pkg/config"
)

// 🔧 SetupOptions configures the run logger
type SetupOptions struct {
	Console    io.Writer // human-readable output, usually stderr
	Level      zerolog.Level
	Dir        string // run log directory, empty for console only
	FileFormat string // time layout for the log file name
	DirPerm    os.FileMode
	FilePerm   os.FileMode
	MaxSizeMB  int
	Now        time.Time
}

// 📜 RunLog is the logger for one run and the file it writes to
type RunLog struct {
	Logger zerolog.Logger
	Path   string // empty when no file is written

	file io.Closer
}

// Close flushes and closes the run log file
func (r *RunLog) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// 🏭 OptionsFromConfig derives setup options from the log config
func OptionsFromConfig(cfg config.Log, console io.Writer, debug bool) (SetupOptions, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return SetupOptions{}, errors.Errorf("log level: %w", err)
	}
	if debug {
		level = zerolog.DebugLevel
	}
	dirPerm, err := config.ParseMode(cfg.DirPermission)
	if err != nil {
		return SetupOptions{}, errors.Errorf("log dir permission: %w", err)
	}
	filePerm, err := config.ParseMode(cfg.FilePermission)
	if err != nil {
		return SetupOptions{}, errors.Errorf("log file permission: %w", err)
	}
	return SetupOptions{
		Console:    console,
		Level:      level,
		Dir:        cfg.Path,
		FileFormat: cfg.FileFormat,
		DirPerm:    dirPerm,
		FilePerm:   filePerm,
		MaxSizeMB:  cfg.MaxSizeMB,
		Now:        time.Now(),
	}, nil
}

// 🎯 Setup builds a logger writing to the console and, when a directory is
// configured, to a new per-run file created with the configured permissions
func Setup(opts SetupOptions) (*RunLog, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}

	if opts.Dir == "" {
		logger := zerolog.New(consoleWriter).With().Timestamp().Logger().Level(opts.Level)
		return &RunLog{Logger: logger}, nil
	}

	if err := os.MkdirAll(opts.Dir, opts.DirPerm); err != nil {
		return nil, errors.Errorf("creating log directory: %w", err)
	}
	if err := os.Chmod(opts.Dir, opts.DirPerm); err != nil {
		return nil, errors.Errorf("setting log directory permissions: %w", err)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	path := filepath.Join(opts.Dir, now.Format(opts.FileFormat))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, opts.FilePerm)
	if err != nil {
		return nil, errors.Errorf("creating log file: %w", err)
	}
	if err := f.Chmod(opts.FilePerm); err != nil {
		_ = f.Close()
		return nil, errors.Errorf("setting log file permissions: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.Errorf("closing log file: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:  path,
		MaxSize:   opts.MaxSizeMB,
		LocalTime: true,
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(consoleWriter, file)).
		With().
		Timestamp().
		Logger().
		Level(opts.Level)

	return &RunLog{Logger: logger, Path: path, file: file}, nil
}
