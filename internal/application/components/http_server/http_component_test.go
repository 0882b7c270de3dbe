package http_server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

type sickComponent struct{ *core.BaseComponent }

func (s *sickComponent) HealthCheck() error { return errors.New("store unreachable") }

func TestServerMountsRoutesAndHealth(t *testing.T) {
	c := core.NewContainer()
	hs := NewHTTPServerComponent(&HTTPServerConfig{Enabled: true, Address: "127.0.0.1:0", EnableHealth: true}, c)
	require.NoError(t, hs.AddRouteRegistrar(func(r chi.Router, _ *core.Container) error {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
		return nil
	}))
	require.NoError(t, hs.Start(context.Background()))
	t.Cleanup(func() { _ = hs.Stop(context.Background()) })
	base := "http://" + hs.Addr().String()

	resp, err := http.Get(base + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, c.Register("store", &sickComponent{core.NewBaseComponent("store")}))
	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	assert.Error(t, hs.AddRouteRegistrar(func(chi.Router, *core.Container) error { return nil }))
}
