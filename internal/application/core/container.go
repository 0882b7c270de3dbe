package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Container holds registered components by name.
type Container struct {
	mu         sync.RWMutex
	components map[string]Component
}

func NewContainer() *Container {
	return &Container{
		components: make(map[string]Component),
	}
}

func (c *Container) Register(name string, component Component) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.components[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	c.components[name] = component
	return nil
}

func (c *Container) Resolve(name string) (Component, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	component, ok := c.components[name]
	if !ok {
		return nil, fmt.Errorf("component %s not found", name)
	}
	return component, nil
}

// ResolveAs resolves name and asserts it to T.
func ResolveAs[T Component](c *Container, name string) (T, error) {
	var zero T
	comp, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := comp.(T)
	if !ok {
		return zero, fmt.Errorf("component %s has type %T", name, comp)
	}
	return typed, nil
}

func (c *Container) ListRegistered() map[string]Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Component, len(c.components))
	for name, comp := range c.components {
		out[name] = comp
	}
	return out
}

// SortComponentsByDependencies returns components so that every dependency
// precedes its dependents. Ties are broken by name for stable ordering.
func (c *Container) SortComponentsByDependencies() ([]Component, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(c.components))
	ordered := make([]Component, 0, len(c.components))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("circular dependency: %s", strings.Join(append(path[:len(path):len(path)], name), " -> "))
		}
		comp, ok := c.components[name]
		if !ok {
			return fmt.Errorf("component %s not found (required by %s)", name, last(path))
		}
		state[name] = visiting
		next := append(path[:len(path):len(path)], name)
		for _, dep := range comp.Dependencies() {
			if err := visit(dep, next); err != nil {
				return err
			}
		}
		state[name] = done
		ordered = append(ordered, comp)
		return nil
	}

	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// ValidateDependencies reports every missing dependency at once, then checks for cycles.
func (c *Container) ValidateDependencies() ([]Component, error) {
	c.mu.RLock()
	var missing []string
	for name, comp := range c.components {
		for _, dep := range comp.Dependencies() {
			if _, ok := c.components[dep]; !ok {
				missing = append(missing, name+" -> "+dep)
			}
		}
	}
	c.mu.RUnlock()
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing component dependencies: %s", strings.Join(missing, "; "))
	}
	return c.SortComponentsByDependencies()
}

func last(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return path[len(path)-1]
}
