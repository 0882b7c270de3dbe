package launcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	bizConfig "github.com/grand-thief-cash/resurrector/internal/config"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

func activation(ns, name string) wire.Message {
	return wire.BuildActivation(model.RegistrationRequest{
		Identity:         model.Identity{Namespace: ns, Name: name},
		EndpointKind:     model.EndpointService,
		ActivationAction: wire.ActionResurrect,
	}, []string{"ping"})
}

func TestHTTPLauncherPostsToNamespaceEndpoint(t *testing.T) {
	got := make(chan wire.Message, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg wire.Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		got <- msg
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cli := http_client.NewInstrumentedClient("launch", &http_client.HTTPClientConfig{})
	l := NewHTTPLauncher(cli, map[string]string{"pkg.a": srv.URL + "/wake"})
	require.NoError(t, l.Launch(context.Background(), activation("pkg.a", "Worker")))

	msg := <-got
	assert.Equal(t, "pkg.a/Worker", msg.Component.String())
	events, ok := wire.ResurrectionEvents(msg)
	require.True(t, ok)
	assert.Equal(t, []string{"ping"}, events)

	err := l.Launch(context.Background(), activation("pkg.z", "Other"))
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestHTTPLauncherSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := NewHTTPLauncher(http_client.NewInstrumentedClient("launch", &http_client.HTTPClientConfig{}),
		map[string]string{"*": srv.URL})
	assert.Error(t, l.Launch(context.Background(), activation("pkg.a", "Worker")))
}

func TestHTTPLauncherSendsOneActivationDespiteClientRetry(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		posts.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cli := http_client.NewInstrumentedClient("wake", &http_client.HTTPClientConfig{
		Retry: &http_client.RetryConfig{Enabled: true, MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	l := NewHTTPLauncher(cli, map[string]string{"*": srv.URL})

	err := l.Launch(context.Background(), activation("pkg.a", "Worker"))
	var se *http_client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, int32(1), posts.Load())
	assert.NotNil(t, cli.Retry, "shared client keeps its retry policy")
}

func TestRedisLauncherPublishesPerRecipientChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "wake:pkg.a/Worker")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	l := NewRedisLauncher(client, "wake:")
	require.NoError(t, l.Launch(ctx, activation("pkg.a", "Worker")))

	select {
	case m := <-sub.Channel():
		var msg wire.Message
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &msg))
		assert.Equal(t, wire.ActionResurrect, msg.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("activation not published")
	}
}

func TestSetSelectsStrategyPerKind(t *testing.T) {
	var launched []model.EndpointKind
	rec := func(kind model.EndpointKind) Launcher {
		return Func(func(context.Context, wire.Message) error {
			launched = append(launched, kind)
			return nil
		})
	}
	s := NewStaticSet(map[model.EndpointKind]Launcher{
		model.EndpointService:  rec(model.EndpointService),
		model.EndpointActivity: rec(model.EndpointActivity),
	})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Launch(context.Background(), model.EndpointActivity, activation("a", "b")))
	require.NoError(t, s.Launch(context.Background(), model.EndpointService, activation("a", "b")))
	assert.Equal(t, []model.EndpointKind{model.EndpointActivity, model.EndpointService}, launched)
	assert.ErrorIs(t, s.Launch(context.Background(), "Receiver", activation("a", "b")), ErrNoEndpoint)
}

func TestSetRequiresBackingComponents(t *testing.T) {
	s := NewSet(bizConfig.LaunchConfig{
		Service:  bizConfig.StrategyConfig{Strategy: bizConfig.StrategyRedis},
		Activity: bizConfig.StrategyConfig{Strategy: bizConfig.StrategyLog},
	})
	assert.ErrorContains(t, s.Start(context.Background()), "requires the redis component")

	ok := NewSet(bizConfig.LaunchConfig{})
	require.NoError(t, ok.Start(context.Background()))
	l, err := ok.For(model.EndpointService)
	require.NoError(t, err)
	assert.IsType(t, LogLauncher{}, l)
}
