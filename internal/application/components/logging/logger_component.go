package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

// LoggerComponent owns the process zap logger and installs it as the global
// logger on Start. Every other component depends on it.
type LoggerComponent struct {
	*core.BaseComponent
	config *LoggingConfig
	zl     *zapLogger
	sink   *sink
}

func NewLoggerComponent(cfg *LoggingConfig) *LoggerComponent {
	return &LoggerComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_LOGGING),
		config:        cfg,
	}
}

func (lc *LoggerComponent) Start(ctx context.Context) error {
	if err := lc.BaseComponent.Start(ctx); err != nil {
		return err
	}
	s, err := openSink(lc.config)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	lc.sink = s
	z := zap.New(
		zapcore.NewCore(newEncoder(lc.config.Format), s.ws, ParseLevel(lc.config.Level)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	lc.zl = &zapLogger{z: z.WithOptions(zap.AddCallerSkip(callerSkip))}
	z.Info("logging ready",
		zap.String("level", lc.config.Level),
		zap.String("format", lc.config.Format),
		zap.String("output", s.name),
	)
	SetGlobalLogger(lc.zl)
	return nil
}

func (lc *LoggerComponent) Stop(ctx context.Context) error {
	if lc.zl != nil {
		_ = lc.zl.Sync()
		SetGlobalLogger(noopLogger{})
	}
	if lc.sink != nil {
		_ = lc.sink.close()
	}
	return lc.BaseComponent.Stop(ctx)
}

func (lc *LoggerComponent) HealthCheck() error {
	if err := lc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if lc.zl == nil {
		return fmt.Errorf("logger not started")
	}
	return nil
}

func (lc *LoggerComponent) Logger() Logger { return lc.zl }
