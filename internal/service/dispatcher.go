package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

var ErrDispatcherStopped = errors.New("wake dispatcher stopped")

var tracer = otel.Tracer("github.com/grand-thief-cash/resurrector/internal/service")

// KindLauncher issues an activation with the strategy for kind.
type KindLauncher interface {
	Launch(ctx context.Context, kind model.EndpointKind, msg wire.Message) error
}

type DispatchResult struct {
	ID      string           `json:"dispatch_id"`
	Matched []model.Identity `json:"matched"`
}

type launchJob struct {
	dispatchID string
	kind       model.EndpointKind
	msg        wire.Message
	span       trace.SpanContext
}

// WakeDispatcher matches events against the index and hands one activation
// per matched registration to its launch workers. Launches never run on the
// caller's goroutine, and one recipient's failure does not affect the others.
type WakeDispatcher struct {
	index     *RegistrationIndex
	launchers KindLauncher
	cfg       bizConfig.DispatchConfig
	metrics   *metrics

	mu      sync.RWMutex
	jobs    chan launchJob
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWakeDispatcher(index *RegistrationIndex, launchers KindLauncher, cfg bizConfig.DispatchConfig, m *metrics) *WakeDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = 10 * time.Second
	}
	return &WakeDispatcher{
		index:     index,
		launchers: launchers,
		cfg:       cfg,
		metrics:   m,
		jobs:      make(chan launchJob, cfg.QueueSize),
	}
}

// Start spawns the launch workers. Workers outlive the ctx passed here.
func (d *WakeDispatcher) Start() {
	loopCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(loopCtx)
	}
}

// Stop lets queued launches finish until ctx expires, then aborts the rest.
func (d *WakeDispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn(ctx, "wake dispatcher stop timed out; aborting pending launches")
	}
	if d.cancel != nil {
		d.cancel()
	}
	<-done
}

// Dispatch looks up the registrations matching events and queues their
// activations. ctx only gates the lookup: once matched, every recipient is
// queued even if ctx ends meanwhile.
func (d *WakeDispatcher) Dispatch(ctx context.Context, events []string) (DispatchResult, error) {
	res := DispatchResult{ID: uuid.NewString()}
	ctx, span := tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.String("dispatch_id", res.ID),
		attribute.StringSlice("events", events),
	))
	defer span.End()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	matched := d.index.Lookup(events)
	span.SetAttributes(attribute.Int("matched", len(matched)))
	d.metrics.dispatches.WithLabelValues().Inc()

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return res, ErrDispatcherStopped
	}
	// Every match is queued once looked up; a full queue blocks until a
	// worker frees a slot, and the caller's ctx no longer applies.
	res.Matched = make([]model.Identity, 0, len(matched))
	for _, r := range matched {
		d.jobs <- launchJob{
			dispatchID: res.ID,
			kind:       r.EndpointKind,
			msg:        wire.BuildActivation(r, events),
			span:       span.SpanContext(),
		}
		res.Matched = append(res.Matched, r.Identity)
	}
	logging.Info(ctx, "dispatch queued", zap.String("dispatch_id", res.ID),
		zap.Strings("events", events), zap.Int("matched", len(res.Matched)))
	return res, nil
}

func (d *WakeDispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.launch(ctx, job)
		}
	}
}

func (d *WakeDispatcher) launch(ctx context.Context, job launchJob) {
	ctx = trace.ContextWithRemoteSpanContext(ctx, job.span)
	ctx, span := tracer.Start(ctx, "launch", trace.WithAttributes(
		attribute.String("dispatch_id", job.dispatchID),
		attribute.String("component", job.msg.Component.String()),
	))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, d.cfg.LaunchTimeout)
	defer cancel()

	start := time.Now()
	err := d.launchers.Launch(ctx, job.kind, job.msg)
	d.metrics.launchSeconds.WithLabelValues(string(job.kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		d.metrics.launches.WithLabelValues(string(job.kind), "failed").Inc()
		logging.Warn(ctx, "activation launch failed",
			zap.String("dispatch_id", job.dispatchID),
			zap.String("component", job.msg.Component.String()),
			zap.String("kind", string(job.kind)),
			zap.Error(err))
		return
	}
	d.metrics.launches.WithLabelValues(string(job.kind), "ok").Inc()
}
