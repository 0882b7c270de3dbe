// Package client is the facade a recipient uses to register with a
// resurrector host and to recognize the activations it receives.
package client

import (
	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

type Option func(*model.RegistrationRequest)

// WithAction sets the action the activation will carry.
func WithAction(action string) Option {
	return func(r *model.RegistrationRequest) { r.ActivationAction = action }
}

// WithPayload merges p into the activation's extras.
func WithPayload(p bundle.Bundle) Option {
	return func(r *model.RegistrationRequest) { r.Payload = p.Clone() }
}

// NotifyOn limits the registration to events. No events means any event.
func NotifyOn(events ...string) Option {
	return func(r *model.RegistrationRequest) { r.NotifyOn = append([]string(nil), events...) }
}

func NewRequest(id model.Identity, kind model.EndpointKind, opts ...Option) model.RegistrationRequest {
	r := model.RegistrationRequest{Identity: id, EndpointKind: kind}
	for _, o := range opts {
		o(&r)
	}
	return r
}

// DefaultRequest wakes self with ActionResurrect and no payload.
func DefaultRequest(self model.Identity, kind model.EndpointKind, events ...string) model.RegistrationRequest {
	return NewRequest(self, kind, WithAction(wire.ActionResurrect), NotifyOn(events...))
}
