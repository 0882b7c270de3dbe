package service

import (
	"github.com/prometheus/client_golang/prometheus"

	prom "github.com/grand-thief-cash/resurrector/internal/application/components/prometheus"
)

type metrics struct {
	registrations *prometheus.CounterVec // result: stored | dropped | failed
	indexSize     *prometheus.GaugeVec
	dispatches    *prometheus.CounterVec
	launches      *prometheus.CounterVec // kind, result: ok | failed
	launchSeconds *prometheus.HistogramVec
}

// newMetrics registers on the prometheus component when present, otherwise
// on a private registry so counters still work in tests and minimal configs.
func newMetrics(p *prom.Component) (*metrics, prometheus.Gatherer) {
	if p != nil {
		return &metrics{
			registrations: p.NewCounter("registrations_total", "Registration submissions by outcome.", []string{"result"}),
			indexSize:     p.NewGauge("registrations", "Registrations currently indexed.", nil),
			dispatches:    p.NewCounter("dispatches_total", "Dispatch calls.", nil),
			launches:      p.NewCounter("launches_total", "Activation launches by endpoint kind and outcome.", []string{"kind", "result"}),
			launchSeconds: p.NewHistogram("launch_duration_seconds", "Activation launch latency.", []string{"kind"}, nil),
		}, p.Registry()
	}
	reg := prometheus.NewRegistry()
	m := &metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "resurrector", Name: "registrations_total", Help: "Registration submissions by outcome."}, []string{"result"}),
		indexSize:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "resurrector", Name: "registrations", Help: "Registrations currently indexed."}, nil),
		dispatches:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "resurrector", Name: "dispatches_total", Help: "Dispatch calls."}, nil),
		launches:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "resurrector", Name: "launches_total", Help: "Activation launches by endpoint kind and outcome."}, []string{"kind", "result"}),
		launchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "resurrector", Name: "launch_duration_seconds", Help: "Activation launch latency.", Buckets: prometheus.DefBuckets}, []string{"kind"}),
	}
	reg.MustRegister(m.registrations, m.indexSize, m.dispatches, m.launches, m.launchSeconds)
	return m, reg
}
