package prometheus

import (
	"fmt"

	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg *Config) (core.Component, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("prometheus component disabled")
	}
	if cfg.Address == "" {
		cfg.Address = ":9090"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	return NewComponent(cfg), nil
}
