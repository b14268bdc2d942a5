// Package logger builds the zerolog loggers used by procscore.
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/srodi/procscore/pkg/config"
	"github.com/srodi/procscore/pkg/types"
)

// Logger is a zerolog logger that owns its rotated output files.
type Logger struct {
	zerolog.Logger
	closers []io.Closer
}

// New builds a logger writing to console, and to cfg.File when set. The standard library
// logger is redirected into it.
func New(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "parsing log level", "level", cfg.Level)
	}

	l := &Logger{}
	writers := []io.Writer{formatWriter(console, cfg.Format, false)}
	if cfg.File != "" {
		file, err := rotatingFile(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		l.closers = append(l.closers, file)
		writers = append(writers, formatWriter(file, cfg.Format, true))
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()

	log.SetFlags(0)
	log.SetOutput(l.Logger)
	return l, nil
}

// Close flushes and closes file outputs.
func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Combine(errs...)
}

func formatWriter(out io.Writer, format string, file bool) io.Writer {
	if format == "json" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: file}
}

func rotatingFile(path string, maxSizeMB, maxBackups int) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.WrapIfWithDetails(err, "creating log directory", "path", path)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		LocalTime:  true,
	}, nil
}

// RiskLog appends processes that crossed the watch threshold to a rotated JSON-lines file.
type RiskLog struct {
	out    *lumberjack.Logger
	logger zerolog.Logger
}

// NewRiskLog opens path for appending.
func NewRiskLog(path string, maxSizeMB, maxBackups int) (*RiskLog, error) {
	file, err := rotatingFile(path, maxSizeMB, maxBackups)
	if err != nil {
		return nil, err
	}
	return &RiskLog{out: file, logger: zerolog.New(file).With().Timestamp().Logger()}, nil
}

// Record writes one risky process.
func (r *RiskLog) Record(s types.ProcessSample) {
	r.logger.Log().
		Int("pid", s.PID).
		Str("comm", s.Comm).
		Str("tier", s.Tier.String()).
		Int("score", s.Score).
		Float64("cpu_percent", s.CPUPercent).
		Float64("mem_rss_mb", s.MemRSSMB).
		Uint64("syscalls_proxy", s.SyscallsProxy).
		Uint64("socket_total", s.SocketTotal).
		Int("priority", s.Priority).
		Msg("risky process")
}

// Close closes the underlying file.
func (r *RiskLog) Close() error {
	return r.out.Close()
}
