package mcp

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the process logger: console output on stderr plus a
// size-rotated JSON file sink.
func newLogger(g GlobalSettings) *zap.Logger {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(strings.ToLower(g.LogLevel)))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), level),
	}
	if g.LogFile != "" {
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   g.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileSink, level))
	}

	return zap.New(zapcore.NewTee(cores...))
}

// QueryLogEntry is one immutable record of a statement execution.
type QueryLogEntry struct {
	Query        string
	DurationMS   float64
	RowsAffected int64
	Success      bool
	Error        string
}

// QueryLog is a bounded in-memory history of executed statements,
// oldest evicted first. Purely observational.
type QueryLog struct {
	mu       sync.Mutex
	logger   *zap.Logger
	entries  []QueryLogEntry
	capacity int
}

func NewQueryLog(logger *zap.Logger, capacity int) *QueryLog {
	if capacity <= 0 {
		capacity = QueryLogCapacity
	}
	return &QueryLog{logger: logger, capacity: capacity}
}

// Record appends one entry, evicting the oldest when full.
func (l *QueryLog) Record(query string, duration time.Duration, rowsAffected int64, execErr error) {
	display := query
	if len(display) > QueryLogSQLLimit {
		display = display[:QueryLogSQLLimit] + "..."
	}

	entry := QueryLogEntry{
		Query:        display,
		DurationMS:   float64(duration.Microseconds()) / 1000.0,
		RowsAffected: rowsAffected,
		Success:      execErr == nil,
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[1:]
	}
	l.mu.Unlock()

	if execErr == nil {
		l.logger.Info("query executed",
			zap.Float64("duration_ms", entry.DurationMS),
			zap.Int64("rows", rowsAffected),
			zap.String("query", display))
	} else {
		l.logger.Error("query failed",
			zap.Float64("duration_ms", entry.DurationMS),
			zap.String("error", entry.Error),
			zap.String("query", display))
	}
}

// Recent returns up to limit of the most recent entries, oldest first.
func (l *QueryLog) Recent(limit int) []QueryLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]QueryLogEntry, limit)
	copy(out, l.entries[len(l.entries)-limit:])
	return out
}

// Slow returns entries whose duration exceeded the threshold.
func (l *QueryLog) Slow(threshold time.Duration) []QueryLogEntry {
	thresholdMS := float64(threshold.Microseconds()) / 1000.0
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []QueryLogEntry
	for _, e := range l.entries {
		if e.DurationMS > thresholdMS {
			out = append(out, e)
		}
	}
	return out
}
