package registry_ext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-thief-cash/resurrector/client"
	"github.com/grand-thief-cash/resurrector/internal/application"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_server"
	appconsts "github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/hooks"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	"github.com/grand-thief-cash/resurrector/internal/consts"
	"github.com/grand-thief-cash/resurrector/model"
)

const testConfig = `
app_info:
  app_name: resurrector
  env: test
logging:
  enabled: true
  level: error
  format: console
  output: stderr
gorm:
  enabled: true
  log_level: silent
  data_sources:
    resurrector:
      driver: sqlite
      path: %s
http_server:
  enabled: true
  address: 127.0.0.1:0
  enable_health: true
biz_config:
  resurrector:
    dispatch:
      workers: 2
      launch_timeout: 2s
`

func TestHostBootsAndServes(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(testConfig, filepath.Join(dir, "registry.db"))), 0o600))

	app := application.NewApp(appconsts.ENV_TEST, cfgPath)
	app.SetBizConfig(&bizConfig.BizConfig{})
	app.SetShutdownTimeout(5 * time.Second)
	require.NoError(t, app.Boot())

	for _, name := range []string{
		consts.COMP_DAO_REGISTRATION, consts.COMP_SVC_LAUNCHER, consts.COMP_SVC_RESURRECTOR, consts.COMP_CTRL_RESURRECTOR,
	} {
		_, err := app.GetComponent(name)
		require.NoError(t, err, name)
	}
	_, err := app.GetComponent(consts.COMP_SVC_EVENT_SUBSCRIBER)
	assert.Error(t, err, "event feed is off by default")

	ready := make(chan struct{})
	require.NoError(t, app.AddHook("test_ready", hooks.AfterStart, func(context.Context) error {
		close(ready)
		return nil
	}, 100))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunWithContext(ctx) }()
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("host exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("host did not start")
	}

	comp, err := app.GetComponent(appconsts.COMPONENT_HTTP_SERVER)
	require.NoError(t, err)
	cli := client.New("http://"+comp.(*http_server.HTTPServerComponent).Addr().String(), nil)

	worker := model.Identity{Namespace: "pkg.a", Name: "Worker"}
	require.NoError(t, cli.Register(ctx, client.DefaultRequest(worker, model.EndpointService)))
	res, err := cli.Dispatch(ctx, []string{"ping"})
	require.NoError(t, err)
	assert.Equal(t, []model.Identity{worker}, res.Matched)

	cancel()
	require.NoError(t, <-done)
}
