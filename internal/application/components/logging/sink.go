package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// sink is where encoded entries go, plus how to release it.
type sink struct {
	name  string
	ws    zapcore.WriteSyncer
	close func() error
}

func openSink(cfg *LoggingConfig) (*sink, error) {
	nop := func() error { return nil }
	switch out := strings.ToLower(cfg.Output); out {
	case "", "stdout":
		return &sink{name: "stdout", ws: zapcore.Lock(os.Stdout), close: nop}, nil
	case "stderr":
		return &sink{name: "stderr", ws: zapcore.Lock(os.Stderr), close: nop}, nil
	case "file":
		if cfg.FileConfig == nil {
			return nil, fmt.Errorf("file_config is required when output is file")
		}
		return openFileSink(filepath.Join(cfg.FileConfig.Dir, cfg.FileConfig.Filename+".log"), cfg.RotateConfig)
	default:
		return openFileSink(cfg.Output, cfg.RotateConfig)
	}
}

// openFileSink appends to path, through lumberjack when rotation is enabled.
func openFileSink(path string, rc *RotateConfig) (*sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if rc == nil || !rc.Enabled {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return &sink{name: path, ws: zapcore.AddSync(f), close: f.Close}, nil
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rc.MaxSizeMB,
		MaxAge:     int(rc.MaxAge.Hours() / 24),
		MaxBackups: rc.MaxBackups,
		Compress:   rc.Compress,
		LocalTime:  true,
	}
	return &sink{name: path + " (rotated)", ws: zapcore.AddSync(lj), close: lj.Close}, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "console") {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// ParseLevel maps a case-insensitive level name to a zap level; unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	if strings.EqualFold(level, "warning") {
		return zapcore.WarnLevel
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
