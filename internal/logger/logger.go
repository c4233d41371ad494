// Package logger builds the application logger. The terminal belongs to
// the TUI, so logs go to a size-rotated file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nhle/weekly-planner/internal/model"
)

// Logger wraps zap.SugaredLogger with the planner's field helpers.
type Logger struct {
	*zap.SugaredLogger

	sink *lumberjack.Logger
}

// New creates a JSON logger writing to cfg.File with rotation. An empty
// File logs to stderr.
func New(cfg model.LogConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		ws   zapcore.WriteSyncer
		sink *lumberjack.Logger
	)
	if cfg.File == "" {
		ws = zapcore.Lock(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		sink = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		ws = zapcore.AddSync(sink)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, zap.NewAtomicLevelAt(level))
	zl := zap.New(core, zap.AddCaller())

	return &Logger{SugaredLogger: zl.Sugar(), sink: sink}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{SugaredLogger: l.With("component", component), sink: l.sink}
}

// WithOwner adds the board owner id to the logger.
func (l *Logger) WithOwner(ownerID string) *Logger {
	return &Logger{SugaredLogger: l.With("owner_id", ownerID), sink: l.sink}
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}
