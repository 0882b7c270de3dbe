package registry_ext

import (
	"github.com/grand-thief-cash/resurrector/internal/application/config"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	"github.com/grand-thief-cash/resurrector/internal/application/registry"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	"github.com/grand-thief-cash/resurrector/internal/launcher"
	"github.com/grand-thief-cash/resurrector/internal/service"
)

func init() {
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		rc, err := bizConfig.FromApp(cfg.BizConfig)
		if err != nil {
			return true, nil, err
		}
		return true, launcher.NewSet(rc.Launch), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		rc, err := bizConfig.FromApp(cfg.BizConfig)
		if err != nil {
			return true, nil, err
		}
		return true, service.NewResurrector(rc), nil
	})

	// the Redis event feed is optional
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		rc, err := bizConfig.FromApp(cfg.BizConfig)
		if err != nil {
			return true, nil, err
		}
		if !rc.Events.Enabled {
			return false, nil, nil
		}
		return true, service.NewEventSubscriber(rc.Events.Channel), nil
	})
}
