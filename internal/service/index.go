package service

import (
	"slices"
	"sync"

	"github.com/grand-thief-cash/resurrector/model"
)

// RegistrationIndex is the in-memory view of the persisted registrations:
// every request by identity, plus the identities interested in each event key.
// byKey is always derivable from all.
type RegistrationIndex struct {
	mu    sync.RWMutex
	all   map[model.Identity]model.RegistrationRequest
	byKey map[string]map[model.Identity]struct{}
}

func NewRegistrationIndex() *RegistrationIndex {
	return &RegistrationIndex{
		all:   map[model.Identity]model.RegistrationRequest{},
		byKey: map[string]map[model.Identity]struct{}{},
	}
}

// RebuildFrom replaces the whole index. A later entry for the same identity wins.
func (x *RegistrationIndex) RebuildFrom(list []model.RegistrationRequest) {
	all := make(map[model.Identity]model.RegistrationRequest, len(list))
	byKey := make(map[string]map[model.Identity]struct{})
	for _, r := range list {
		if old, ok := all[r.Identity]; ok {
			unlink(byKey, old)
		}
		r = r.Normalized()
		all[r.Identity] = r
		link(byKey, r)
	}
	x.mu.Lock()
	x.all, x.byKey = all, byKey
	x.mu.Unlock()
}

// ApplyIncremental adds req, first dropping the key memberships of any
// previous registration for the same identity.
func (x *RegistrationIndex) ApplyIncremental(req model.RegistrationRequest) {
	req = req.Normalized()
	x.mu.Lock()
	defer x.mu.Unlock()
	if old, ok := x.all[req.Identity]; ok {
		unlink(x.byKey, old)
	}
	x.all[req.Identity] = req
	link(x.byKey, req)
}

// Lookup returns the registrations interested in any of events, plus every
// wildcard registration, each once, ordered by identity.
func (x *RegistrationIndex) Lookup(events []string) []model.RegistrationRequest {
	x.mu.RLock()
	defer x.mu.RUnlock()
	seen := map[model.Identity]struct{}{}
	for _, e := range append([]string{model.WildcardKey}, events...) {
		for id := range x.byKey[e] {
			seen[id] = struct{}{}
		}
	}
	out := make([]model.RegistrationRequest, 0, len(seen))
	for id := range seen {
		out = append(out, copyRequest(x.all[id]))
	}
	model.SortRequests(out)
	return out
}

func (x *RegistrationIndex) Get(id model.Identity) (model.RegistrationRequest, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.all[id]
	return copyRequest(r), ok
}

// All returns every registration ordered by identity.
func (x *RegistrationIndex) All() []model.RegistrationRequest {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]model.RegistrationRequest, 0, len(x.all))
	for _, r := range x.all {
		out = append(out, copyRequest(r))
	}
	model.SortRequests(out)
	return out
}

func (x *RegistrationIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.all)
}

func link(byKey map[string]map[model.Identity]struct{}, r model.RegistrationRequest) {
	for _, k := range r.EventKeys() {
		set, ok := byKey[k]
		if !ok {
			set = map[model.Identity]struct{}{}
			byKey[k] = set
		}
		set[r.Identity] = struct{}{}
	}
}

func unlink(byKey map[string]map[model.Identity]struct{}, r model.RegistrationRequest) {
	for _, k := range r.EventKeys() {
		delete(byKey[k], r.Identity)
		if len(byKey[k]) == 0 {
			delete(byKey, k)
		}
	}
}

func copyRequest(r model.RegistrationRequest) model.RegistrationRequest {
	r.Payload = r.Payload.Clone()
	r.NotifyOn = slices.Clone(r.NotifyOn)
	return r
}
