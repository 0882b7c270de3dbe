package registry_ext

import (
	"github.com/grand-thief-cash/resurrector/internal/api"
	"github.com/grand-thief-cash/resurrector/internal/application/config"
	appconsts "github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	"github.com/grand-thief-cash/resurrector/internal/application/registry"
	"github.com/grand-thief-cash/resurrector/internal/consts"
)

func init() {
	// http_server must start after the controller it mounts.
	registry.ExtendRuntimeDependencies(appconsts.COMPONENT_HTTP_SERVER, consts.COMP_CTRL_RESURRECTOR)

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return true, api.NewResurrectorController(), nil
	})
}
