package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grand-thief-cash/resurrector/internal/application/consts"
)

// global helper -> Logger method -> write -> zap
const callerSkip = 3

// Logger is the context-aware structured logger used across the service.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...zap.Field)
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Warn(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
	Fatal(ctx context.Context, msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Sync() error
}

// zapLogger stamps the span of ctx onto every entry.
type zapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps an existing zap logger, e.g. one built on zaptest/observer.
func NewZapLogger(z *zap.Logger) Logger {
	return &zapLogger{z: z.WithOptions(zap.AddCallerSkip(callerSkip))}
}

func (l *zapLogger) Debug(ctx context.Context, msg string, f ...zap.Field) {
	l.write(ctx, zapcore.DebugLevel, msg, f)
}
func (l *zapLogger) Info(ctx context.Context, msg string, f ...zap.Field) {
	l.write(ctx, zapcore.InfoLevel, msg, f)
}
func (l *zapLogger) Warn(ctx context.Context, msg string, f ...zap.Field) {
	l.write(ctx, zapcore.WarnLevel, msg, f)
}
func (l *zapLogger) Error(ctx context.Context, msg string, f ...zap.Field) {
	l.write(ctx, zapcore.ErrorLevel, msg, f)
}

// Fatal exits the process after writing.
func (l *zapLogger) Fatal(ctx context.Context, msg string, f ...zap.Field) {
	l.write(ctx, zapcore.FatalLevel, msg, f)
}

func (l *zapLogger) With(fields ...zap.Field) Logger { return &zapLogger{z: l.z.With(fields...)} }

func (l *zapLogger) Sync() error { return l.z.Sync() }

func (l *zapLogger) write(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	ce := l.z.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(append(spanFields(ctx, fields), fields...)...)
}

// spanFields returns trace_id and span_id for the span in ctx unless the
// caller already set a trace id.
func spanFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return nil
	}
	for _, f := range fields {
		if f.Key == consts.KEY_TraceID {
			return nil
		}
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String(consts.KEY_TraceID, sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
