package launcher

import (
	"context"
	"fmt"

	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	"github.com/grand-thief-cash/resurrector/internal/application/components/redis"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	bizConsts "github.com/grand-thief-cash/resurrector/internal/consts"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

// Set maps each endpoint kind to its launch strategy.
type Set struct {
	*core.BaseComponent
	RedisComp   *redis.RedisComponent              `infra:"dep:redis?"`
	HTTPClients *http_client.HTTPClientsComponent `infra:"dep:http_clients?"`

	cfg    bizConfig.LaunchConfig
	byKind map[model.EndpointKind]Launcher
}

// NewSet builds the strategies from cfg when started.
func NewSet(cfg bizConfig.LaunchConfig) *Set {
	return &Set{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_LAUNCHER, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

// NewStaticSet uses the given launchers as is.
func NewStaticSet(byKind map[model.EndpointKind]Launcher) *Set {
	s := NewSet(bizConfig.LaunchConfig{})
	s.byKind = byKind
	return s
}

func (s *Set) Start(ctx context.Context) error {
	if err := s.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if s.byKind != nil {
		return nil
	}
	byKind := make(map[model.EndpointKind]Launcher, 2)
	for kind, sc := range map[model.EndpointKind]bizConfig.StrategyConfig{
		model.EndpointService:  s.cfg.Service,
		model.EndpointActivity: s.cfg.Activity,
	} {
		l, err := s.build(sc)
		if err != nil {
			return fmt.Errorf("launcher for %s: %w", kind, err)
		}
		byKind[kind] = l
	}
	s.byKind = byKind
	return nil
}

func (s *Set) build(sc bizConfig.StrategyConfig) (Launcher, error) {
	switch sc.Strategy {
	case bizConfig.StrategyHTTP:
		if s.HTTPClients == nil {
			return nil, fmt.Errorf("http strategy requires the http_clients component")
		}
		cli, err := s.HTTPClients.Client(sc.HTTPClient)
		if err != nil {
			return nil, err
		}
		return NewHTTPLauncher(cli, sc.Endpoints), nil
	case bizConfig.StrategyRedis:
		if s.RedisComp == nil {
			return nil, fmt.Errorf("redis strategy requires the redis component")
		}
		return NewRedisLauncher(s.RedisComp.Client(), sc.ChannelPrefix), nil
	case bizConfig.StrategyLog, "":
		return LogLauncher{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", sc.Strategy)
}

// For returns the launcher serving kind.
func (s *Set) For(kind model.EndpointKind) (Launcher, error) {
	l, ok := s.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w for endpoint kind %q", ErrNoEndpoint, kind)
	}
	return l, nil
}

func (s *Set) Launch(ctx context.Context, kind model.EndpointKind, msg wire.Message) error {
	l, err := s.For(kind)
	if err != nil {
		return err
	}
	return l.Launch(ctx, msg)
}
