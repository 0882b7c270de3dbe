package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/grand-thief-cash/resurrector/internal/application/config"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

// BuilderFunc returns (enabled, component, error). enabled=false skips registration.
type BuilderFunc func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error)

type Builder struct {
	Name string
	Fn   BuilderFunc
	// Auto builders get their name and build-time deps from the prebuilt component.
	Auto bool
	Deps []string

	prebuilt   core.Component
	preEnabled bool
}

var (
	buildersMu sync.Mutex
	builders   []*Builder
)

func findBuilder(name string) *Builder {
	for _, b := range builders {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Register adds a named builder with no build-time dependencies.
func Register(name string, fn BuilderFunc) { RegisterWithDeps(name, nil, fn) }

// RegisterWithDeps adds a named builder that is built after the builders named in deps.
func RegisterWithDeps(name string, deps []string, fn BuilderFunc) {
	if name == "" {
		panic("registry: empty name in Register")
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	if findBuilder(name) != nil {
		panic("registry: duplicate builder name " + name)
	}
	builders = append(builders, &Builder{Name: name, Fn: fn, Deps: append([]string(nil), deps...)})
}

// RegisterAuto adds a builder whose component Name() and `infra:"dep:<name>"` tags
// supply the registration name and build order.
func RegisterAuto(fn BuilderFunc) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders = append(builders, &Builder{Auto: true, Fn: fn})
}

// BuildAndRegisterAll builds every enabled component in dependency order and registers it.
func BuildAndRegisterAll(cfg *config.AppConfig, c *core.Container) error {
	buildersMu.Lock()
	defer buildersMu.Unlock()

	for _, b := range builders {
		if !b.Auto {
			continue
		}
		enabled, comp, err := b.Fn(cfg, c)
		if err != nil {
			return fmt.Errorf("build auto component failed: %w", err)
		}
		b.preEnabled, b.prebuilt = enabled, comp
		if !enabled || comp == nil {
			continue
		}
		name := comp.Name()
		if name == "" {
			return fmt.Errorf("auto builder produced unnamed component")
		}
		if existing := findBuilder(name); existing != nil && existing != b {
			return fmt.Errorf("duplicate inferred name: %s", name)
		}
		b.Name = name
		b.Deps = nil
		for _, d := range inferTagDependencies(comp) {
			if findBuilder(d) != nil {
				b.Deps = append(b.Deps, d)
			}
		}
	}

	ordered, err := topoSortBuilders(builders)
	if err != nil {
		return err
	}
	for _, b := range ordered {
		enabled, comp := b.preEnabled, b.prebuilt
		if !b.Auto {
			enabled, comp, err = b.Fn(cfg, c)
			if err != nil {
				return fmt.Errorf("build %s failed: %w", b.Name, err)
			}
		}
		if !enabled || comp == nil {
			continue
		}
		if err := c.Register(b.Name, comp); err != nil {
			return fmt.Errorf("register %s failed: %w", b.Name, err)
		}
	}
	applyRuntimeDepExtensions(c)
	return nil
}

func inferTagDependencies(comp core.Component) []string {
	v := reflect.ValueOf(comp)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	seen := map[string]struct{}{}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("infra")
		if f.PkgPath != "" || !strings.HasPrefix(tag, "dep:") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(tag, "dep:")), "?")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// topoSortBuilders is Kahn's algorithm with alphabetical tie-breaking.
// Disabled auto builders (no name) are dropped.
func topoSortBuilders(list []*Builder) ([]*Builder, error) {
	byName := map[string]*Builder{}
	inDeg := map[string]int{}
	adj := map[string][]string{}
	for _, b := range list {
		if b.Name != "" {
			byName[b.Name] = b
			inDeg[b.Name] = 0
		}
	}
	for _, b := range list {
		if b.Name == "" {
			continue
		}
		for _, d := range b.Deps {
			if _, ok := byName[d]; !ok {
				continue
			}
			adj[d] = append(adj[d], b.Name)
			inDeg[b.Name]++
		}
	}
	var ready []string
	for n, d := range inDeg {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	var ordered []*Builder
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[n])
		for _, next := range adj[n] {
			inDeg[next]--
			if inDeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(ordered) != len(byName) {
		var cyc []string
		for n, d := range inDeg {
			if d > 0 {
				cyc = append(cyc, n)
			}
		}
		sort.Strings(cyc)
		return nil, fmt.Errorf("registry: cyclic builder deps: %v", cyc)
	}
	return ordered, nil
}
