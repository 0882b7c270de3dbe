// Package model holds the registration data types shared by the host and its clients.
package model

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/grand-thief-cash/resurrector/bundle"
)

// WildcardKey is the event key under which registrations that listen to
// every event are indexed and stored.
const WildcardKey = ""

var (
	ErrInvalidIdentity     = errors.New("invalid component identity")
	ErrInvalidEndpointKind = errors.New("invalid endpoint kind")
)

// Identity addresses one launchable recipient.
type Identity struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (i Identity) String() string { return i.Namespace + "/" + i.Name }

func (i Identity) Validate() error {
	if i.Namespace == "" || i.Name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, i.String())
	}
	return nil
}

// Compare orders identities by namespace, then name.
func (i Identity) Compare(o Identity) int {
	if c := strings.Compare(i.Namespace, o.Namespace); c != 0 {
		return c
	}
	return strings.Compare(i.Name, o.Name)
}

// ParseIdentity parses "namespace/name". The name may itself contain slashes.
func ParseIdentity(s string) (Identity, error) {
	ns, name, ok := strings.Cut(s, "/")
	id := Identity{Namespace: ns, Name: name}
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q (want namespace/name)", ErrInvalidIdentity, s)
	}
	return id, id.Validate()
}

type EndpointKind string

const (
	EndpointService  EndpointKind = "Service"
	EndpointActivity EndpointKind = "Activity"
)

func (k EndpointKind) Valid() bool { return k == EndpointService || k == EndpointActivity }

func ParseEndpointKind(s string) (EndpointKind, error) {
	switch {
	case strings.EqualFold(s, string(EndpointService)):
		return EndpointService, nil
	case strings.EqualFold(s, string(EndpointActivity)):
		return EndpointActivity, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEndpointKind, s)
}

// RegistrationRequest is one recipient's wake preferences. An empty
// ActivationAction and a nil Payload mean "absent". An empty NotifyOn
// means the recipient is woken by any event.
type RegistrationRequest struct {
	Identity         Identity      `json:"identity"`
	EndpointKind     EndpointKind  `json:"endpoint_kind"`
	ActivationAction string        `json:"activation_action,omitempty"`
	Payload          bundle.Bundle `json:"payload"`
	NotifyOn         []string      `json:"notify_on"`
}

func (r RegistrationRequest) Validate() error {
	if err := r.Identity.Validate(); err != nil {
		return err
	}
	if !r.EndpointKind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEndpointKind, r.EndpointKind)
	}
	return nil
}

// IsWildcard reports whether the request matches every event.
func (r RegistrationRequest) IsWildcard() bool {
	keys := r.EventKeys()
	return len(keys) == 1 && keys[0] == WildcardKey
}

// EventKeys returns the sorted, deduplicated keys the request is indexed
// under: its NotifyOn set, or just WildcardKey when that set is empty.
func (r RegistrationRequest) EventKeys() []string {
	keys := NormalizeEvents(r.NotifyOn)
	if len(keys) == 0 {
		return []string{WildcardKey}
	}
	return keys
}

// Normalized returns a copy with NotifyOn sorted and deduplicated, and nil
// for a wildcard registration.
func (r RegistrationRequest) Normalized() RegistrationRequest {
	out := r
	out.Payload = r.Payload.Clone()
	out.NotifyOn = nil
	if !r.IsWildcard() {
		out.NotifyOn = r.EventKeys()
	}
	return out
}

func (r RegistrationRequest) Equal(o RegistrationRequest) bool {
	if r.Identity != o.Identity || r.EndpointKind != o.EndpointKind || r.ActivationAction != o.ActivationAction {
		return false
	}
	if (r.Payload == nil) != (o.Payload == nil) || !r.Payload.Equal(o.Payload) {
		return false
	}
	return slices.Equal(r.EventKeys(), o.EventKeys())
}

// NormalizeEvents sorts and deduplicates events. An explicit WildcardKey
// alongside other keys is kept.
func NormalizeEvents(events []string) []string {
	if len(events) == 0 {
		return nil
	}
	out := slices.Clone(events)
	sort.Strings(out)
	return slices.Compact(out)
}

// SortRequests orders requests by identity.
func SortRequests(rs []RegistrationRequest) {
	slices.SortFunc(rs, func(a, b RegistrationRequest) int { return a.Identity.Compare(b.Identity) })
}
