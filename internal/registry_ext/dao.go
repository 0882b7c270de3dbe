package registry_ext

import (
	"github.com/grand-thief-cash/resurrector/internal/application/config"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	"github.com/grand-thief-cash/resurrector/internal/application/registry"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	"github.com/grand-thief-cash/resurrector/internal/dao"
)

func init() {
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		rc, err := bizConfig.FromApp(cfg.BizConfig)
		if err != nil {
			return true, nil, err
		}
		return true, dao.NewRegistrationDao(rc.DataSource), nil
	})
}
