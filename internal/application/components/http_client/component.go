package http_client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
)

// HTTPClientsComponent builds the named outbound clients on Start and
// closes their idle connections on Stop.
type HTTPClientsComponent struct {
	*core.BaseComponent
	cfg *HTTPClientsConfig

	mu       sync.RWMutex
	byName   map[string]*InstrumentedClient
	fallback string
}

func NewHTTPClientsComponent(cfg *HTTPClientsConfig) *HTTPClientsComponent {
	return &HTTPClientsComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_HTTP_CLIENTS, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

// NewInstrumentedClient builds a standalone client with an otelhttp transport.
func NewInstrumentedClient(name string, cfg *HTTPClientConfig) *InstrumentedClient {
	cfg.applyDefaults()
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &InstrumentedClient{
		Name:      name,
		BaseURL:   cfg.BaseURL,
		Headers:   cfg.DefaultHeaders,
		Retry:     cfg.Retry,
		http:      &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(transport)},
		transport: transport,
	}
}

func (hc *HTTPClientsComponent) Start(ctx context.Context) error {
	if err := hc.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if hc.cfg == nil || !hc.cfg.Enabled {
		return fmt.Errorf("http_clients disabled or missing config")
	}
	hc.cfg.applyDefaults()

	built := make(map[string]*InstrumentedClient, len(hc.cfg.Clients))
	names := make([]string, 0, len(hc.cfg.Clients))
	for name, cc := range hc.cfg.Clients {
		built[name] = NewInstrumentedClient(name, cc)
		names = append(names, name)
	}
	sort.Strings(names)

	hc.mu.Lock()
	hc.byName, hc.fallback = built, hc.cfg.Default
	hc.mu.Unlock()
	logging.Info(ctx, "http clients ready", zap.Strings("clients", names), zap.String("default", hc.cfg.Default))
	return nil
}

func (hc *HTTPClientsComponent) Stop(ctx context.Context) error {
	hc.mu.RLock()
	for _, cli := range hc.byName {
		cli.transport.CloseIdleConnections()
	}
	hc.mu.RUnlock()
	return hc.BaseComponent.Stop(ctx)
}

func (hc *HTTPClientsComponent) HealthCheck() error {
	if err := hc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if len(hc.byName) == 0 {
		return fmt.Errorf("no http clients initialized")
	}
	return nil
}

// Client returns the named client; an empty name selects the default one.
func (hc *HTTPClientsComponent) Client(name string) (*InstrumentedClient, error) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if name == "" {
		name = hc.fallback
	}
	if cli, ok := hc.byName[name]; ok {
		return cli, nil
	}
	return nil, fmt.Errorf("http client %q not configured", name)
}

func (hc *HTTPClientsComponent) Default() (*InstrumentedClient, error) { return hc.Client("") }
