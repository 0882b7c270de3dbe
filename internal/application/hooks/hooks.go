package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type HookFunc func(ctx context.Context) error

// Phase is a point in the application lifecycle where hooks run.
type Phase string

const (
	BeforeStart    Phase = "before_start"
	AfterStart     Phase = "after_start"
	BeforeShutdown Phase = "before_shutdown"
	AfterShutdown  Phase = "after_shutdown"
)

// Hook runs at Phase; lower Priority runs first.
type Hook struct {
	Name     string
	Phase    Phase
	Function HookFunc
	Priority int
}

type Manager struct {
	mu    sync.RWMutex
	hooks map[Phase][]*Hook
}

func NewManager() *Manager {
	return &Manager{hooks: make(map[Phase][]*Hook)}
}

func (m *Manager) Register(hook *Hook) error {
	switch {
	case hook == nil:
		return fmt.Errorf("hook cannot be nil")
	case hook.Function == nil:
		return fmt.Errorf("hook %s: function cannot be nil", hook.Name)
	case !validPhase(hook.Phase):
		return fmt.Errorf("hook %s: invalid phase %q", hook.Name, hook.Phase)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.hooks[hook.Phase], hook)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
	m.hooks[hook.Phase] = list
	return nil
}

// Execute runs the hooks of phase in priority order and stops at the first error.
func (m *Manager) Execute(ctx context.Context, phase Phase) error {
	m.mu.RLock()
	list := make([]*Hook, len(m.hooks[phase]))
	copy(list, m.hooks[phase])
	m.mu.RUnlock()

	for _, h := range list {
		if err := h.Function(ctx); err != nil {
			return fmt.Errorf("hook %s failed: %w", h.Name, err)
		}
	}
	return nil
}

// Merge copies the hooks of other into m.
func (m *Manager) Merge(other *Manager) error {
	other.mu.RLock()
	var all []*Hook
	for _, list := range other.hooks {
		all = append(all, list...)
	}
	other.mu.RUnlock()
	for _, h := range all {
		if err := m.Register(h); err != nil {
			return err
		}
	}
	return nil
}

func validPhase(p Phase) bool {
	switch p {
	case BeforeStart, AfterStart, BeforeShutdown, AfterShutdown:
		return true
	}
	return false
}
