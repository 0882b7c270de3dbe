package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

// exporterPair is the span and metric exporter for one configured backend.
// release closes whatever the exporters write to and runs after they flush.
type exporterPair struct {
	spans   sdktrace.SpanExporter
	metrics sdkmetric.Exporter
	release func(context.Context) error
}

func newExporters(ctx context.Context, cfg *Config) (exporterPair, error) {
	switch cfg.Exporter {
	case ExporterStdout:
		return stdoutExporters(cfg)
	case ExporterOTLP:
		return otlpExporters(ctx, cfg.OTLP)
	}
	return exporterPair{}, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
}

func stdoutExporters(cfg *Config) (exporterPair, error) {
	var (
		w       io.Writer = os.Stdout
		release           = func(context.Context) error { return nil }
	)
	if cfg.StdoutFile != "" {
		f, err := os.OpenFile(cfg.StdoutFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return exporterPair{}, fmt.Errorf("open telemetry stdout file: %w", err)
		}
		w, release = f, func(context.Context) error { return f.Close() }
	}
	traceOpts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.StdoutPretty {
		traceOpts = append(traceOpts, stdouttrace.WithPrettyPrint())
	}
	spans, err := stdouttrace.New(traceOpts...)
	if err != nil {
		_ = release(context.Background())
		return exporterPair{}, err
	}
	metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		_ = release(context.Background())
		return exporterPair{}, err
	}
	return exporterPair{spans: spans, metrics: metrics, release: release}, nil
}

func otlpExporters(ctx context.Context, oc *OTLPConfig) (exporterPair, error) {
	if oc == nil || oc.Endpoint == "" {
		return exporterPair{}, errors.New("otlp exporter selected but otlp.endpoint empty")
	}
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(oc.Endpoint), otlptracegrpc.WithTimeout(oc.Timeout)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(oc.Endpoint), otlpmetricgrpc.WithTimeout(oc.Timeout)}
	if oc.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	} else {
		traceOpts = append(traceOpts, otlptracegrpc.WithDialOption(grpc.WithBlock()))
		metricOpts = append(metricOpts, otlpmetricgrpc.WithDialOption(grpc.WithBlock()))
	}
	spans, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return exporterPair{}, fmt.Errorf("otlp trace exporter: %w", err)
	}
	metrics, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return exporterPair{}, fmt.Errorf("otlp metric exporter: %w", err)
	}
	return exporterPair{spans: spans, metrics: metrics, release: func(context.Context) error { return nil }}, nil
}
