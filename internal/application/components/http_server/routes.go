package http_server

import (
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

// RouteRegisterFunc mounts routes; it may resolve components from the container.
type RouteRegisterFunc func(r chi.Router, c *core.Container) error

var (
	registrarMu sync.Mutex
	registrars  []RouteRegisterFunc
)

// RegisterRoutes adds a process-wide registrar, typically from an init function.
func RegisterRoutes(fn RouteRegisterFunc) {
	if fn == nil {
		return
	}
	registrarMu.Lock()
	registrars = append(registrars, fn)
	registrarMu.Unlock()
}

func snapshot() []RouteRegisterFunc {
	registrarMu.Lock()
	defer registrarMu.Unlock()
	out := make([]RouteRegisterFunc, len(registrars))
	copy(out, registrars)
	return out
}
