package config

import (
	"fmt"
	"time"
)

const (
	StrategyHTTP  = "http"
	StrategyRedis = "redis"
	StrategyLog   = "log"
)

// BizConfig is the biz_config section of the host config file.
type BizConfig struct {
	Resurrector *ResurrectorConfig `yaml:"resurrector" json:"resurrector"`
}

type ResurrectorConfig struct {
	DataSource string         `yaml:"data_source" json:"data_source"`
	Dispatch   DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Launch     LaunchConfig   `yaml:"launch" json:"launch"`
	Events     EventsConfig   `yaml:"events" json:"events"`
}

type DispatchConfig struct {
	Workers       int           `yaml:"workers" json:"workers"`
	QueueSize     int           `yaml:"queue_size" json:"queue_size"`
	LaunchTimeout time.Duration `yaml:"launch_timeout" json:"launch_timeout"`
}

// LaunchConfig selects the launch strategy per endpoint kind.
type LaunchConfig struct {
	Service  StrategyConfig `yaml:"service" json:"service"`
	Activity StrategyConfig `yaml:"activity" json:"activity"`
}

type StrategyConfig struct {
	Strategy string `yaml:"strategy" json:"strategy"` // http | redis | log
	// http: named client from http_clients and namespace -> URL; "*" is the fallback.
	HTTPClient string            `yaml:"http_client" json:"http_client"`
	Endpoints  map[string]string `yaml:"endpoints" json:"endpoints"`
	// redis: activations are published to <channel_prefix><namespace>/<name>.
	ChannelPrefix string `yaml:"channel_prefix" json:"channel_prefix"`
}

// EventsConfig enables the Redis event feed; each message is a JSON array of event names.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Channel string `yaml:"channel" json:"channel"`
}

// Default returns the settings used when biz_config.resurrector is absent.
func Default() *ResurrectorConfig {
	c := &ResurrectorConfig{}
	c.ApplyDefaults()
	return c
}

func (c *ResurrectorConfig) ApplyDefaults() {
	if c.DataSource == "" {
		c.DataSource = "resurrector"
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.QueueSize <= 0 {
		c.Dispatch.QueueSize = 256
	}
	if c.Dispatch.LaunchTimeout <= 0 {
		c.Dispatch.LaunchTimeout = 10 * time.Second
	}
	for _, s := range []*StrategyConfig{&c.Launch.Service, &c.Launch.Activity} {
		if s.Strategy == "" {
			s.Strategy = StrategyLog
		}
		if s.ChannelPrefix == "" {
			s.ChannelPrefix = "resurrector:wake:"
		}
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "resurrector:events"
	}
}

func (c *ResurrectorConfig) Validate() error {
	for name, s := range map[string]StrategyConfig{"service": c.Launch.Service, "activity": c.Launch.Activity} {
		switch s.Strategy {
		case StrategyHTTP:
			if len(s.Endpoints) == 0 {
				return fmt.Errorf("launch.%s: http strategy needs endpoints", name)
			}
		case StrategyRedis, StrategyLog:
		default:
			return fmt.Errorf("launch.%s: unknown strategy %q", name, s.Strategy)
		}
	}
	return nil
}

// FromApp extracts the resurrector section from the decoded biz_config, with defaults applied.
func FromApp(biz any) (*ResurrectorConfig, error) {
	var c *ResurrectorConfig
	if b, ok := biz.(*BizConfig); ok && b != nil && b.Resurrector != nil {
		c = b.Resurrector
	} else {
		c = &ResurrectorConfig{}
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("biz_config.resurrector: %w", err)
	}
	return c, nil
}
