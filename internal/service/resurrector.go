package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	prom "github.com/grand-thief-cash/resurrector/internal/application/components/prometheus"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	bizConsts "github.com/grand-thief-cash/resurrector/internal/consts"
	"github.com/grand-thief-cash/resurrector/internal/dao"
	"github.com/grand-thief-cash/resurrector/internal/launcher"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

var ErrStopped = errors.New("resurrector stopped")

// Resurrector owns the registry for one host: the store, the in-memory
// index and the dispatcher. The index is filled by an asynchronous load at
// Start and updated by every accepted registration afterwards.
type Resurrector struct {
	*core.BaseComponent
	Dao       dao.RegistrationDao `infra:"dep:registration_dao"`
	Launchers *launcher.Set       `infra:"dep:launcher"`
	PromComp  *prom.Component     `infra:"dep:prometheus?"`

	cfg        *bizConfig.ResurrectorConfig
	index      *RegistrationIndex
	dispatcher *WakeDispatcher
	metrics    *metrics
	gatherer   prometheus.Gatherer

	mu      sync.RWMutex
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
	loaded  chan struct{}
	loadErr error
}

func NewResurrector(cfg *bizConfig.ResurrectorConfig) *Resurrector {
	return &Resurrector{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_RESURRECTOR, consts.COMPONENT_LOGGING),
		cfg:           cfg,
		index:         NewRegistrationIndex(),
		loaded:        make(chan struct{}),
	}
}

// Start initializes the schema, which must succeed, then loads the store in the background.
func (r *Resurrector) Start(ctx context.Context) error {
	if err := r.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if r.Dao == nil || r.Launchers == nil {
		return fmt.Errorf("resurrector: registration dao and launcher must be injected")
	}
	r.metrics, r.gatherer = newMetrics(r.PromComp)
	if err := r.Dao.InitializeSchema(ctx); err != nil {
		return fmt.Errorf("resurrector: %w", err)
	}

	r.dispatcher = NewWakeDispatcher(r.index, r.Launchers, r.cfg.Dispatch, r.metrics)
	r.dispatcher.Start()

	r.mu.Lock()
	r.runCtx, r.cancel = context.WithCancel(context.Background())
	r.tasks.Add(1)
	r.mu.Unlock()
	go r.load(r.runCtx)
	return nil
}

func (r *Resurrector) load(ctx context.Context) {
	defer r.tasks.Done()
	defer close(r.loaded)

	list, err := r.Dao.LoadAll(ctx)
	if err != nil {
		r.loadErr = err
		logging.Error(ctx, "initial registration load failed; index starts empty", zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		r.loadErr = ctx.Err()
		return
	}
	r.index.RebuildFrom(list)
	r.metrics.indexSize.WithLabelValues().Set(float64(r.index.Len()))
	logging.Infof(ctx, "registration index loaded: %d registration(s)", len(list))
}

// Stop cancels outstanding load and registration tasks and waits for them.
func (r *Resurrector) Stop(ctx context.Context) error {
	defer func() { _ = r.BaseComponent.Stop(ctx) }()
	r.mu.Lock()
	if r.stopped || r.runCtx == nil {
		r.stopped = true
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.tasks.Wait()
	r.dispatcher.Stop(ctx)
	return nil
}

// WaitLoaded blocks until the initial load has finished and returns its error.
func (r *Resurrector) WaitLoaded(ctx context.Context) error {
	select {
	case <-r.loaded:
		return r.loadErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit accepts a registration-submission message without reporting the
// outcome. Malformed or foreign messages are dropped.
func (r *Resurrector) Submit(ctx context.Context, msg wire.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped || r.runCtx == nil {
		logging.Warn(ctx, "submission while not running dropped", zap.String("action", msg.Action))
		return
	}
	req, err := wire.ParseRequestMessage(ctx, msg)
	if err != nil {
		r.metrics.registrations.WithLabelValues("dropped").Inc()
		logging.Debug(ctx, "submission dropped", zap.String("action", msg.Action), zap.Error(err))
		return
	}
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		if err := r.register(r.runCtx, req); err != nil {
			logging.Error(r.runCtx, "registration task failed", zap.Stringer("identity", req.Identity), zap.Error(err))
		}
	}()
}

// Register stores req and applies it to the index, reporting the outcome.
// A nil error means req is persisted. If the host stops before the initial
// load completes, the index is left as is and req takes effect on the next start.
func (r *Resurrector) Register(ctx context.Context, req model.RegistrationRequest) error {
	r.mu.RLock()
	if r.stopped || r.runCtx == nil {
		r.mu.RUnlock()
		return ErrStopped
	}
	if err := req.Validate(); err != nil {
		r.mu.RUnlock()
		r.metrics.registrations.WithLabelValues("dropped").Inc()
		return err
	}
	r.tasks.Add(1)
	r.mu.RUnlock()
	defer r.tasks.Done()
	return r.register(ctx, req.Normalized())
}

func (r *Resurrector) register(ctx context.Context, req model.RegistrationRequest) error {
	if err := r.Dao.Upsert(ctx, req); err != nil {
		r.metrics.registrations.WithLabelValues("failed").Inc()
		return err
	}
	r.metrics.registrations.WithLabelValues("stored").Inc()

	// The initial rebuild must not overwrite this newer registration. Once
	// stored the registration is durable, so neither the caller's ctx nor a
	// shutdown turns it into an error; a stopped host reloads it on next start.
	select {
	case <-r.loaded:
	case <-r.runCtx.Done():
	}
	if r.runCtx.Err() != nil {
		logging.Info(ctx, "registration stored while stopping; index applies it on next start",
			zap.Stringer("identity", req.Identity))
		return nil
	}
	r.index.ApplyIncremental(req)
	r.metrics.indexSize.WithLabelValues().Set(float64(r.index.Len()))
	logging.Info(ctx, "registration applied", zap.Stringer("identity", req.Identity),
		zap.String("kind", string(req.EndpointKind)), zap.Strings("notify_on", req.EventKeys()))
	return nil
}

// Dispatch waits for the initial load so that persisted recipients are not
// missed, then wakes every registration matching events.
func (r *Resurrector) Dispatch(ctx context.Context, events []string) (DispatchResult, error) {
	select {
	case <-r.loaded:
	case <-ctx.Done():
		return DispatchResult{}, ctx.Err()
	}
	return r.dispatcher.Dispatch(ctx, events)
}

// Registrations returns the indexed registrations ordered by identity.
func (r *Resurrector) Registrations() []model.RegistrationRequest { return r.index.All() }

func (r *Resurrector) Index() *RegistrationIndex { return r.index }

// Gatherer exposes the registry holding the service metrics.
func (r *Resurrector) Gatherer() prometheus.Gatherer { return r.gatherer }
