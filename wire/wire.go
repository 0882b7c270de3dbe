// Package wire defines the messages exchanged between the host and its
// clients: registration submissions and activations.
package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/model"
)

const (
	// ActionRequestResurrection prefixes the action of every registration submission.
	ActionRequestResurrection = "resurrector.REQUEST"
	// ActionResurrect is the activation action used by default requests.
	ActionResurrect = "resurrector.TIME_TO_WAKEUP"
	// ExtraResurrectNotifier carries the triggering event names on an activation.
	ExtraResurrectNotifier = "RESURRECT_NOTIFIER"

	KeyPackageName   = "registration_intent_package_name"
	KeyClassName     = "registration_intent_class_name"
	KeyComponentType = "registration_intent_component_type"
	KeyAction        = "registration_intent_action"
	KeyExtras        = "registration_intent_extras"
	KeyNotifiers     = "registration_intent_notifiers"
)

var (
	ErrNotSubmission = errors.New("not a registration submission")
	ErrMalformed     = errors.New("malformed registration submission")
)

// Message is the envelope for both submissions and activations.
type Message struct {
	Action    string          `json:"action,omitempty"`
	Component *model.Identity `json:"component,omitempty"`
	Extras    bundle.Bundle   `json:"extras,omitempty"`
}

// UnmarshalJSON decodes extras entry by entry; an entry that fails to
// decode is dropped with a warning instead of failing the whole message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env struct {
		Action    string                     `json:"action"`
		Component *model.Identity            `json:"component"`
		Extras    map[string]json.RawMessage `json:"extras"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*m = Message{Action: env.Action, Component: env.Component}
	if env.Extras == nil {
		return nil
	}
	m.Extras = make(bundle.Bundle, len(env.Extras))
	for k, raw := range env.Extras {
		var v bundle.Value
		if err := json.Unmarshal(raw, &v); err != nil {
			logging.Warn(context.Background(), "dropping undecodable message extra", zap.String("key", k), zap.Error(err))
			continue
		}
		m.Extras[k] = v
	}
	return nil
}

// IsSubmission reports whether the action marks a registration submission.
func IsSubmission(action string) bool {
	return strings.HasPrefix(action, ActionRequestResurrection)
}

// PopulateRequestMessage encodes req as a registration submission.
func PopulateRequestMessage(req model.RegistrationRequest) Message {
	extras := bundle.New().
		Set(KeyPackageName, bundle.String(req.Identity.Namespace)).
		Set(KeyClassName, bundle.String(req.Identity.Name)).
		Set(KeyComponentType, bundle.String(string(req.EndpointKind))).
		Set(KeyNotifiers, bundle.StringArray(model.NormalizeEvents(req.NotifyOn)...))
	if req.ActivationAction != "" {
		extras.Set(KeyAction, bundle.String(req.ActivationAction))
	}
	if req.Payload != nil {
		extras.Set(KeyExtras, bundle.Nested(req.Payload))
	}
	return Message{Action: ActionRequestResurrection, Extras: extras}
}

// ParseRequestMessage decodes a registration submission. It returns
// ErrNotSubmission for a foreign action and ErrMalformed when the identity,
// component type or notifier list is missing or invalid. A payload of the
// wrong kind is treated as absent.
func ParseRequestMessage(ctx context.Context, msg Message) (model.RegistrationRequest, error) {
	var req model.RegistrationRequest
	if !IsSubmission(msg.Action) {
		return req, fmt.Errorf("%w: action %q", ErrNotSubmission, msg.Action)
	}
	ns, _ := msg.Extras[KeyPackageName].AsString()
	name, _ := msg.Extras[KeyClassName].AsString()
	req.Identity = model.Identity{Namespace: ns, Name: name}
	if err := req.Identity.Validate(); err != nil {
		return req, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	kind, _ := msg.Extras[KeyComponentType].AsString()
	ek, err := model.ParseEndpointKind(kind)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	req.EndpointKind = ek

	if v, ok := msg.Extras[KeyNotifiers]; ok {
		events, ok := v.AsStringArray()
		if !ok {
			return req, fmt.Errorf("%w: %s is %s, want string_array", ErrMalformed, KeyNotifiers, v.Kind())
		}
		req.NotifyOn = events
	}
	if v, ok := msg.Extras[KeyAction]; ok {
		req.ActivationAction, _ = v.AsString()
	}
	if v, ok := msg.Extras[KeyExtras]; ok {
		if payload, ok := v.AsBundle(); ok {
			req.Payload = payload.Clone()
		} else {
			logging.Warn(ctx, "registration payload not a bundle, storing without payload",
				zap.Stringer("identity", req.Identity), zap.Stringer("kind", v.Kind()))
		}
	}
	return req.Normalized(), nil
}

// BuildActivation builds the message that wakes req for events.
func BuildActivation(req model.RegistrationRequest, events []string) Message {
	id := req.Identity
	extras := req.Payload.Merge(bundle.New().Set(ExtraResurrectNotifier, bundle.StringArray(events...)))
	return Message{Action: req.ActivationAction, Component: &id, Extras: extras}
}

// ResurrectionEvents returns the triggering events when msg is an activation.
func ResurrectionEvents(msg Message) ([]string, bool) {
	v, ok := msg.Extras[ExtraResurrectNotifier]
	if !ok {
		return nil, false
	}
	events, ok := v.AsStringArray()
	if !ok {
		return nil, false
	}
	if events == nil {
		events = []string{}
	}
	return slices.Clone(events), true
}
