package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

// Helper recognizes activations addressed to Self and reports the events
// that caused them.
type Helper struct {
	Self          model.Identity
	Kind          model.EndpointKind
	Client        *Client
	OnResurrected func(events []string)
}

// RequestResurrection registers Self for events; no events means any event.
func (h *Helper) RequestResurrection(ctx context.Context, events ...string) error {
	if h.Client == nil {
		return fmt.Errorf("helper for %s has no client", h.Self)
	}
	kind := h.Kind
	if kind == "" {
		kind = model.EndpointService
	}
	return h.Client.RequestResurrection(ctx, DefaultRequest(h.Self, kind, events...))
}

// OnStart reports whether msg is an activation and, if so, hands its
// events to OnResurrected.
func (h *Helper) OnStart(msg wire.Message) bool {
	events, ok := wire.ResurrectionEvents(msg)
	if !ok {
		return false
	}
	if h.OnResurrected != nil {
		h.OnResurrected(events)
	}
	return true
}

// Handler accepts activations POSTed by the host's http launch strategy.
func (h *Helper) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var msg wire.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !h.OnStart(msg) {
			logging.Debug(r.Context(), "ignoring non-activation message", zap.String("action", msg.Action))
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// Listen consumes activations from the redis launch strategy's channel for
// Self until ctx is done.
func (h *Helper) Listen(ctx context.Context, rdb goredis.UniversalClient, prefix string) error {
	sub := rdb.Subscribe(ctx, prefix+h.Self.String())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe activations for %s: %w", h.Self, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg wire.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				logging.Warn(ctx, "undecodable activation", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			h.OnStart(msg)
		}
	}
}
