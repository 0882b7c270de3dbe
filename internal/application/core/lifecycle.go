package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/grand-thief-cash/resurrector/internal/application/hooks"
)

// LifecycleManager starts components in dependency order and stops them in reverse.
type LifecycleManager struct {
	container *Container
	hooks     *hooks.Manager
	timeout   time.Duration

	mu      sync.Mutex
	started []Component
	stopped bool
}

// NewLifecycleManager uses hm for lifecycle hooks; a nil hm gets a private manager.
func NewLifecycleManager(container *Container, hm *hooks.Manager) *LifecycleManager {
	if hm == nil {
		hm = hooks.NewManager()
	}
	return &LifecycleManager{
		container: container,
		hooks:     hm,
		timeout:   30 * time.Second,
	}
}

// SetTimeout bounds each component Start and Stop call.
func (lm *LifecycleManager) SetTimeout(timeout time.Duration) { lm.timeout = timeout }

func (lm *LifecycleManager) AddHook(name string, phase hooks.Phase, fn hooks.HookFunc, priority int) error {
	return lm.hooks.Register(&hooks.Hook{Name: name, Phase: phase, Function: fn, Priority: priority})
}

// StartAll starts every registered component. If one fails, the components
// already started are stopped in reverse order and the error is returned.
func (lm *LifecycleManager) StartAll(ctx context.Context) error {
	if err := lm.hooks.Execute(ctx, hooks.BeforeStart); err != nil {
		return fmt.Errorf("before_start hooks failed: %w", err)
	}
	components, err := lm.container.ValidateDependencies()
	if err != nil {
		return fmt.Errorf("failed to order components: %w", err)
	}

	for _, comp := range components {
		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := comp.Start(startCtx)
		cancel()
		if err != nil {
			log.Printf("component %s failed to start: %v", comp.Name(), err)
			lm.stopStarted(context.Background())
			return fmt.Errorf("failed to start component %s: %w", comp.Name(), err)
		}
		lm.mu.Lock()
		lm.started = append(lm.started, comp)
		lm.mu.Unlock()
		log.Printf("component %s started", comp.Name())
	}

	if err := lm.hooks.Execute(ctx, hooks.AfterStart); err != nil {
		log.Printf("after_start hooks failed: %v", err)
	}
	return nil
}

// StopAll stops started components in reverse start order. Only the first call has effect.
func (lm *LifecycleManager) StopAll(ctx context.Context) {
	lm.mu.Lock()
	if lm.stopped {
		lm.mu.Unlock()
		return
	}
	lm.stopped = true
	lm.mu.Unlock()

	if err := lm.hooks.Execute(ctx, hooks.BeforeShutdown); err != nil {
		log.Printf("before_shutdown hooks failed: %v", err)
	}
	lm.stopStarted(ctx)
	if err := lm.hooks.Execute(ctx, hooks.AfterShutdown); err != nil {
		log.Printf("after_shutdown hooks failed: %v", err)
	}
}

func (lm *LifecycleManager) stopStarted(ctx context.Context) {
	lm.mu.Lock()
	started := lm.started
	lm.started = nil
	lm.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		comp := started[i]
		if !comp.IsActive() {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		if err := comp.Stop(stopCtx); err != nil {
			log.Printf("component %s failed to stop: %v", comp.Name(), err)
		} else {
			log.Printf("component %s stopped", comp.Name())
		}
		cancel()
	}
}
