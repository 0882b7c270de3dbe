package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bizConfig struct {
	Workers int    `yaml:"workers" json:"workers"`
	Channel string `yaml:"channel" json:"channel"`
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLWithBizSection(t *testing.T) {
	t.Setenv("RESURRECTOR_TEST_CHANNEL", "wake")
	path := writeFile(t, "config.yaml", `
app_info:
  app_name: resurrector
logging:
  enabled: true
  level: debug
biz_config:
  channel: ${RESURRECTOR_TEST_CHANNEL}
`)
	biz := &bizConfig{Workers: 4}
	cm := NewConfigManager("test", path)
	cm.SetBizConfig(biz)
	require.NoError(t, cm.LoadConfig())

	cfg := cm.GetConfig()
	assert.Equal(t, "resurrector", cfg.APPInfo.APPName)
	assert.Equal(t, "test", cfg.APPInfo.ENV)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Same(t, biz, cm.BizConfig())
	assert.Equal(t, 4, biz.Workers, "defaults survive when the file omits a field")
	assert.Equal(t, "wake", biz.Channel)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"app_info":{"app_name":"r","env":"production"},"biz_config":{"workers":2}}`)
	biz := &bizConfig{}
	cm := NewConfigManager("", path)
	cm.SetBizConfig(biz)
	require.NoError(t, cm.LoadConfig())
	assert.Equal(t, "production", cm.GetConfig().APPInfo.ENV)
	assert.Equal(t, 2, biz.Workers)
}

func TestLoadRejectsBadInput(t *testing.T) {
	assert.Error(t, NewConfigManager("test", filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig())
	assert.Error(t, NewConfigManager("test", writeFile(t, "config.toml", "a = 1")).LoadConfig())
	assert.Error(t, NewConfigManager("staging", writeFile(t, "config.yaml", "app_info: {}")).LoadConfig())
}
