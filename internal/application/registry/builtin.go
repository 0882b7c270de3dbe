package registry

import (
	"github.com/grand-thief-cash/resurrector/internal/application/components/gormdb"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_server"
	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/components/prometheus"
	"github.com/grand-thief-cash/resurrector/internal/application/components/redis"
	"github.com/grand-thief-cash/resurrector/internal/application/components/telemetry"
	"github.com/grand-thief-cash/resurrector/internal/application/config"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

func init() {
	Register(consts.COMPONENT_LOGGING, func(cfg *config.AppConfig, _ *core.Container) (bool, core.Component, error) {
		if cfg.Logging == nil || !cfg.Logging.Enabled {
			return false, nil, nil
		}
		comp, err := logging.NewFactory().Create(cfg.Logging)
		return true, comp, err
	})

	Register(consts.COMPONENT_TELEMETRY, func(cfg *config.AppConfig, _ *core.Container) (bool, core.Component, error) {
		if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
			return false, nil, nil
		}
		if cfg.Telemetry.ServiceName == "" && cfg.APPInfo != nil {
			cfg.Telemetry.ServiceName = cfg.APPInfo.APPName
		}
		return true, telemetry.NewTelemetryComponent(cfg.Telemetry), nil
	})

	Register(consts.COMPONENT_GORM, func(cfg *config.AppConfig, _ *core.Container) (bool, core.Component, error) {
		if cfg.Gorm == nil || !cfg.Gorm.Enabled {
			return false, nil, nil
		}
		return true, gormdb.NewGormComponent(cfg.Gorm), nil
	})

	Register(consts.COMPONENT_REDIS, func(cfg *config.AppConfig, _ *core.Container) (bool, core.Component, error) {
		if cfg.Redis == nil || !cfg.Redis.Enabled {
			return false, nil, nil
		}
		comp, err := redis.NewFactory().Create(cfg.Redis)
		return true, comp, err
	})

	Register(consts.COMPONENT_PROMETHEUS, func(cfg *config.AppConfig, _ *core.Container) (bool, core.Component, error) {
		if cfg.Prometheus == nil || !cfg.Prometheus.Enabled {
			return false, nil, nil
		}
		comp, err := prometheus.NewFactory().Create(cfg.Prometheus)
		return true, comp, err
	})

	Register(consts.COMPONENT_HTTP_CLIENTS, func(cfg *config.AppConfig, _ *core.Container) (bool, core.Component, error) {
		if cfg.HTTPClients == nil || !cfg.HTTPClients.Enabled {
			return false, nil, nil
		}
		comp, err := http_client.NewFactory().Create(cfg.HTTPClients)
		return true, comp, err
	})

	Register(consts.COMPONENT_HTTP_SERVER, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.HTTPServer == nil || !cfg.HTTPServer.Enabled {
			return false, nil, nil
		}
		if cfg.APPInfo != nil {
			cfg.HTTPServer.ServiceName = cfg.APPInfo.APPName
		}
		comp, err := http_server.NewFactory(c).Create(cfg.HTTPServer)
		if err != nil {
			return true, nil, err
		}
		// otelchi needs the tracer provider installed first.
		if cfg.Telemetry != nil && cfg.Telemetry.Enabled {
			comp.(*http_server.HTTPServerComponent).AddDependencies(consts.COMPONENT_TELEMETRY)
		}
		return true, comp, nil
	})
}
