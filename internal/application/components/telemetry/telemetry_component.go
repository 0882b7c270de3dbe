package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

const flushTimeout = 5 * time.Second

// TelemetryComponent installs the global OTel tracer and meter providers.
// Spans from the dao and dispatcher go through whatever it installs.
type TelemetryComponent struct {
	*core.BaseComponent
	cfg     *Config
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	release func(context.Context) error
}

func NewTelemetryComponent(cfg *Config) *TelemetryComponent {
	return &TelemetryComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_TELEMETRY, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

func (tc *TelemetryComponent) Start(ctx context.Context) error {
	if err := tc.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if tc.cfg == nil || !tc.cfg.Enabled {
		return errors.New("telemetry disabled or missing config")
	}
	tc.cfg.applyDefaults()
	if tc.cfg.ServiceName == "" {
		return errors.New("telemetry service_name must be set")
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(tc.cfg.ServiceName)),
	)
	if err != nil {
		return fmt.Errorf("telemetry resource: %w", err)
	}
	exp, err := newExporters(ctx, tc.cfg)
	if err != nil {
		return err
	}
	tc.release = exp.release

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.cfg.SampleRatio))
	tc.tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithSampler(sampler), sdktrace.WithBatcher(exp.spans))
	reader := sdkmetric.NewPeriodicReader(exp.metrics, sdkmetric.WithInterval(tc.cfg.MetricInterval))
	tc.mp = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))

	otel.SetTracerProvider(tc.tp)
	otel.SetMeterProvider(tc.mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logging.Info(ctx, "telemetry installed",
		zap.String("service", tc.cfg.ServiceName),
		zap.String("exporter", string(tc.cfg.Exporter)),
		zap.Float64("sample_ratio", tc.cfg.SampleRatio),
	)
	return nil
}

// Stop flushes both providers, then releases the exporter output.
func (tc *TelemetryComponent) Stop(ctx context.Context) error {
	defer func() { _ = tc.BaseComponent.Stop(ctx) }()
	var errs []error
	for _, shutdown := range []func(context.Context) error{tc.shutdownTraces, tc.shutdownMetrics, tc.release} {
		if shutdown == nil {
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, flushTimeout)
		if err := shutdown(sctx); err != nil {
			logging.Warn(ctx, "telemetry shutdown error", zap.Error(err))
			errs = append(errs, err)
		}
		cancel()
	}
	tc.tp, tc.mp, tc.release = nil, nil, nil
	return errors.Join(errs...)
}

func (tc *TelemetryComponent) shutdownTraces(ctx context.Context) error {
	if tc.tp == nil {
		return nil
	}
	return tc.tp.Shutdown(ctx)
}

func (tc *TelemetryComponent) shutdownMetrics(ctx context.Context) error {
	if tc.mp == nil {
		return nil
	}
	return tc.mp.Shutdown(ctx)
}

func (tc *TelemetryComponent) HealthCheck() error {
	if err := tc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if tc.tp == nil || tc.mp == nil {
		return errors.New("telemetry providers not initialized")
	}
	return nil
}

func (tc *TelemetryComponent) Tracer(name string) trace.Tracer {
	if tc.tp == nil {
		return otel.Tracer(name)
	}
	return tc.tp.Tracer(name)
}
