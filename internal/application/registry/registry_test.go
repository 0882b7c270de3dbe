package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/config"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

type tagged struct {
	*core.BaseComponent
	Store core.Component `infra:"dep:store"`
	Cache core.Component `infra:"dep:cache?"`
}

func TestTopoSortOrdersByDepsThenName(t *testing.T) {
	list := []*Builder{
		{Name: "service", Deps: []string{"store", "logging"}},
		{Name: "store", Deps: []string{"logging"}},
		{Name: "logging"},
		{Name: "api"},
		{Auto: true}, // disabled auto builder has no name
	}
	ordered, err := topoSortBuilders(list)
	require.NoError(t, err)
	var names []string
	for _, b := range ordered {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"api", "logging", "store", "service"}, names)

	_, err = topoSortBuilders([]*Builder{{Name: "a", Deps: []string{"b"}}, {Name: "b", Deps: []string{"a"}}})
	assert.ErrorContains(t, err, "cyclic")
}

func TestInferTagDependencies(t *testing.T) {
	comp := &tagged{BaseComponent: core.NewBaseComponent("svc")}
	assert.Equal(t, []string{"store", "cache"}, inferTagDependencies(comp))
}

func TestBuildAndRegisterAllSkipsDisabledSections(t *testing.T) {
	c := core.NewContainer()
	cfg := &config.AppConfig{
		APPInfo: &config.APPInfo{APPName: "resurrector", ENV: "test"},
		Logging: &logging.LoggingConfig{Enabled: true, Level: "debug"},
	}
	require.NoError(t, BuildAndRegisterAll(cfg, c))
	_, err := c.Resolve("logging")
	assert.NoError(t, err)
	_, err = c.Resolve("gorm")
	assert.Error(t, err)
}
