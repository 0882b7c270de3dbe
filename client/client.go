package client

import (
	"context"
	"fmt"

	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	"github.com/grand-thief-cash/resurrector/internal/service"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

// Client talks to the host's /api/v1 surface.
type Client struct {
	http *http_client.InstrumentedClient
}

// New builds a client for the host at baseURL.
func New(baseURL string, cfg *http_client.HTTPClientConfig) *Client {
	if cfg == nil {
		cfg = &http_client.HTTPClientConfig{}
	}
	cfg.BaseURL = baseURL
	return &Client{http: http_client.NewInstrumentedClient("resurrector", cfg)}
}

// NewWithHTTP reuses an already configured instrumented client.
func NewWithHTTP(ic *http_client.InstrumentedClient) *Client {
	return &Client{http: ic}
}

// RequestResurrection submits req as a registration message. The host
// accepts every message, so only transport failures are reported.
func (c *Client) RequestResurrection(ctx context.Context, req model.RegistrationRequest) error {
	if _, err := c.http.Post(ctx, "/api/v1/messages", wire.PopulateRequestMessage(req), nil, nil); err != nil {
		return fmt.Errorf("request resurrection for %s: %w", req.Identity, err)
	}
	return nil
}

// Register files req and waits for the host to store it.
func (c *Client) Register(ctx context.Context, req model.RegistrationRequest) error {
	if _, err := c.http.Post(ctx, "/api/v1/registrations", req, nil, nil); err != nil {
		return fmt.Errorf("register %s: %w", req.Identity, err)
	}
	return nil
}

func (c *Client) Dispatch(ctx context.Context, events []string) (service.DispatchResult, error) {
	var res service.DispatchResult
	body := map[string][]string{"events": events}
	if _, err := c.http.Post(ctx, "/api/v1/events", body, nil, &res); err != nil {
		return res, fmt.Errorf("dispatch: %w", err)
	}
	return res, nil
}

func (c *Client) List(ctx context.Context) ([]model.RegistrationRequest, error) {
	var out struct {
		Items []model.RegistrationRequest `json:"items"`
	}
	if _, err := c.http.Get(ctx, "/api/v1/registrations", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out.Items, nil
}
