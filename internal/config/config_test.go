package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppAppliesDefaults(t *testing.T) {
	c, err := FromApp(nil)
	require.NoError(t, err)
	assert.Equal(t, "resurrector", c.DataSource)
	assert.Equal(t, 4, c.Dispatch.Workers)
	assert.Equal(t, 10*time.Second, c.Dispatch.LaunchTimeout)
	assert.Equal(t, StrategyLog, c.Launch.Activity.Strategy)
	assert.Equal(t, "resurrector:events", c.Events.Channel)
}

func TestFromAppValidatesStrategies(t *testing.T) {
	_, err := FromApp(&BizConfig{Resurrector: &ResurrectorConfig{
		Launch: LaunchConfig{Service: StrategyConfig{Strategy: StrategyHTTP}},
	}})
	assert.ErrorContains(t, err, "needs endpoints")

	_, err = FromApp(&BizConfig{Resurrector: &ResurrectorConfig{
		Launch: LaunchConfig{Activity: StrategyConfig{Strategy: "carrier-pigeon"}},
	}})
	assert.ErrorContains(t, err, "unknown strategy")
}
