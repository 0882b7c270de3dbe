package redis

import (
	"fmt"

	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg *Config) (core.Component, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("redis component disabled")
	}
	cfg.setDefaults()
	return NewRedisComponent(cfg), nil
}
