package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/internal/api"
	"github.com/grand-thief-cash/resurrector/internal/application/components/gormdb"
	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	"github.com/grand-thief-cash/resurrector/internal/dao"
	"github.com/grand-thief-cash/resurrector/internal/launcher"
	"github.com/grand-thief-cash/resurrector/internal/service"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

var worker = model.Identity{Namespace: "pkg.a", Name: "Worker"}

func TestNewRequestOptions(t *testing.T) {
	p := bundle.New().Set("n", bundle.Int32(1))
	r := NewRequest(worker, model.EndpointActivity, WithAction("custom.WAKE"), WithPayload(p), NotifyOn("b", "a"))
	assert.Equal(t, "custom.WAKE", r.ActivationAction)
	assert.True(t, p.Equal(r.Payload))
	assert.Equal(t, []string{"a", "b"}, r.EventKeys())

	d := DefaultRequest(worker, model.EndpointService)
	assert.Equal(t, wire.ActionResurrect, d.ActivationAction)
	assert.Nil(t, d.Payload)
	assert.True(t, d.IsWildcard())
}

func TestHelperOnStart(t *testing.T) {
	var got []string
	h := &Helper{Self: worker, OnResurrected: func(events []string) { got = events }}

	assert.False(t, h.OnStart(wire.Message{Action: wire.ActionResurrect}))
	assert.Nil(t, got)

	msg := wire.BuildActivation(DefaultRequest(worker, model.EndpointService), []string{"ping"})
	assert.True(t, h.OnStart(msg))
	assert.Equal(t, []string{"ping"}, got)
}

func TestHelperListensOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	got := make(chan []string, 1)
	h := &Helper{Self: worker, OnResurrected: func(events []string) { got <- events }}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Listen(ctx, rdb, "wake:") }()

	l := launcher.NewRedisLauncher(rdb, "wake:")
	msg := wire.BuildActivation(DefaultRequest(worker, model.EndpointService), []string{"boot"})
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("wake:*")) > 0 && l.Launch(context.Background(), msg) == nil
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case events := <-got:
		assert.Equal(t, []string{"boot"}, events)
	case <-time.After(2 * time.Second):
		t.Fatal("activation not received")
	}
	cancel()
	assert.NoError(t, <-done)
}

// TestEndToEnd registers through the host API, then dispatches and expects
// the HTTP launch to reach the helper's handler.
func TestEndToEnd(t *testing.T) {
	got := make(chan []string, 4)
	h := &Helper{Self: worker, OnResurrected: func(events []string) { got <- events }}
	recipient := httptest.NewServer(h.Handler())
	defer recipient.Close()

	db, err := gormdb.Open(context.Background(), &gormdb.DataSourceConfig{Path: filepath.Join(t.TempDir(), "r.db")}, logger.Discard)
	require.NoError(t, err)
	store := dao.NewRegistrationDaoWithDB(db)
	require.NoError(t, store.Start(context.Background()))

	httpLaunch := launcher.NewHTTPLauncher(
		http_client.NewInstrumentedClient("launch", &http_client.HTTPClientConfig{}),
		map[string]string{"*": recipient.URL},
	)
	set := launcher.NewStaticSet(map[model.EndpointKind]launcher.Launcher{
		model.EndpointService:  httpLaunch,
		model.EndpointActivity: httpLaunch,
	})
	require.NoError(t, set.Start(context.Background()))

	svc := service.NewResurrector(bizConfig.Default())
	svc.Dao, svc.Launchers = store, set
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop(context.Background())

	ctrl := api.NewResurrectorController()
	ctrl.Svc = svc
	r := chi.NewRouter()
	ctrl.Mount(r)
	host := httptest.NewServer(r)
	defer host.Close()

	cli := New(host.URL, nil)
	h.Client = cli
	ctx := context.Background()
	require.NoError(t, h.RequestResurrection(ctx, "ping"))
	require.NoError(t, cli.Register(ctx, DefaultRequest(model.Identity{Namespace: "pkg.b", Name: "Other"}, model.EndpointActivity, "boot")))

	require.Eventually(t, func() bool {
		list, err := cli.List(ctx)
		return err == nil && len(list) == 2
	}, 2*time.Second, 20*time.Millisecond)

	res, err := cli.Dispatch(ctx, []string{"ping"})
	require.NoError(t, err)
	assert.Equal(t, []model.Identity{worker}, res.Matched)
	select {
	case events := <-got:
		assert.Equal(t, []string{"ping"}, events)
	case <-time.After(2 * time.Second):
		t.Fatal("recipient was not woken")
	}

	err = cli.Register(ctx, model.RegistrationRequest{Identity: worker, EndpointKind: "Receiver"})
	var se *http_client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}
