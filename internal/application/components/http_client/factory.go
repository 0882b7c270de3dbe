package http_client

import (
	"fmt"

	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg *HTTPClientsConfig) (core.Component, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("http_clients component disabled")
	}
	return NewHTTPClientsComponent(cfg), nil
}
