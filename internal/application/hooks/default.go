package hooks

import (
	"context"
	"log"
)

var global = NewManager()

func init() {
	defaults := []struct {
		name  string
		phase Phase
		msg   string
	}{
		{"log_startup", BeforeStart, "application is starting"},
		{"log_started", AfterStart, "application started"},
		{"log_shutdown", BeforeShutdown, "application is shutting down"},
		{"log_shutdown_complete", AfterShutdown, "application shutdown completed"},
	}
	for _, d := range defaults {
		msg := d.msg
		if err := RegisterHook(d.name, d.phase, func(context.Context) error {
			log.Println(msg)
			return nil
		}, 100); err != nil {
			log.Printf("register default hook %s: %v", d.name, err)
		}
	}
}

// RegisterHook adds a hook to the global manager used by every App.
func RegisterHook(name string, phase Phase, fn HookFunc, priority int) error {
	return global.Register(&Hook{Name: name, Phase: phase, Function: fn, Priority: priority})
}

func GlobalManager() *Manager { return global }
