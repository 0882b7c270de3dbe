// Package launcher delivers activation messages to recipients. Each
// endpoint kind is served by one strategy chosen in configuration.
package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/http_client"
	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/wire"
)

var ErrNoEndpoint = errors.New("no launch endpoint")

// Launcher issues one activation.
type Launcher interface {
	Launch(ctx context.Context, msg wire.Message) error
}

type Func func(ctx context.Context, msg wire.Message) error

func (f Func) Launch(ctx context.Context, msg wire.Message) error { return f(ctx, msg) }

// HTTPLauncher POSTs the activation JSON to the endpoint configured for the
// recipient's namespace, or to the "*" endpoint. Each activation is sent
// exactly once; the client's retry policy is not applied.
type HTTPLauncher struct {
	client    *http_client.InstrumentedClient
	endpoints map[string]string
}

func NewHTTPLauncher(client *http_client.InstrumentedClient, endpoints map[string]string) *HTTPLauncher {
	return &HTTPLauncher{client: client.WithoutRetry(), endpoints: endpoints}
}

func (l *HTTPLauncher) Launch(ctx context.Context, msg wire.Message) error {
	if msg.Component == nil {
		return fmt.Errorf("%w: activation has no component", ErrNoEndpoint)
	}
	url, ok := l.endpoints[msg.Component.Namespace]
	if !ok {
		url, ok = l.endpoints["*"]
	}
	if !ok {
		return fmt.Errorf("%w for namespace %q", ErrNoEndpoint, msg.Component.Namespace)
	}
	_, err := l.client.Post(ctx, url, msg, nil, nil)
	return err
}

// RedisLauncher publishes the activation JSON on <prefix><namespace>/<name>.
type RedisLauncher struct {
	client goredis.UniversalClient
	prefix string
}

func NewRedisLauncher(client goredis.UniversalClient, prefix string) *RedisLauncher {
	return &RedisLauncher{client: client, prefix: prefix}
}

func (l *RedisLauncher) Channel(msg wire.Message) string {
	return l.prefix + msg.Component.String()
}

func (l *RedisLauncher) Launch(ctx context.Context, msg wire.Message) error {
	if msg.Component == nil {
		return fmt.Errorf("%w: activation has no component", ErrNoEndpoint)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode activation: %w", err)
	}
	n, err := l.client.Publish(ctx, l.Channel(msg), data).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		logging.Debug(ctx, "activation published with no subscriber", zap.String("channel", l.Channel(msg)))
	}
	return nil
}

// LogLauncher only records the activation.
type LogLauncher struct{}

func (LogLauncher) Launch(ctx context.Context, msg wire.Message) error {
	events, _ := wire.ResurrectionEvents(msg)
	target := ""
	if msg.Component != nil {
		target = msg.Component.String()
	}
	logging.Info(ctx, "activation", zap.String("component", target),
		zap.String("action", msg.Action), zap.Strings("events", events))
	return nil
}
