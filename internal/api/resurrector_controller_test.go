package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-thief-cash/resurrector/bundle"
	"github.com/grand-thief-cash/resurrector/internal/dao"
	"github.com/grand-thief-cash/resurrector/internal/service"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

type fakeService struct {
	mu          sync.Mutex
	submitted   []wire.Message
	registered  []model.RegistrationRequest
	registerErr error
	dispatched  [][]string
}

func (f *fakeService) Submit(_ context.Context, msg wire.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, msg)
}

func (f *fakeService) Register(_ context.Context, req model.RegistrationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, req)
	return nil
}

func (f *fakeService) Dispatch(_ context.Context, events []string) (service.DispatchResult, error) {
	f.dispatched = append(f.dispatched, events)
	return service.DispatchResult{ID: "d-1", Matched: []model.Identity{{Namespace: "pkg.a", Name: "Worker"}}}, nil
}

func (f *fakeService) Registrations() []model.RegistrationRequest { return f.registered }

func newServer(t *testing.T) (*httptest.Server, *fakeService) {
	t.Helper()
	svc := &fakeService{}
	ctrl := NewResurrectorController()
	ctrl.Svc = svc
	r := chi.NewRouter()
	ctrl.Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestPostMessageAlwaysAccepted(t *testing.T) {
	srv, svc := newServer(t)
	msg := wire.PopulateRequestMessage(model.RegistrationRequest{
		Identity:     model.Identity{Namespace: "pkg.a", Name: "Worker"},
		EndpointKind: model.EndpointService,
		NotifyOn:     []string{"ping"},
	})
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	for _, body := range []string{string(raw), `{"action":"other.ACTION"}`, `not json`} {
		resp, _ := post(t, srv.URL+"/api/v1/messages", body)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode, body)
	}
	require.Len(t, svc.submitted, 1)
	req, err := wire.ParseRequestMessage(context.Background(), svc.submitted[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, req.NotifyOn)
}

func TestCreateRegistration(t *testing.T) {
	srv, svc := newServer(t)
	req := model.RegistrationRequest{
		Identity:     model.Identity{Namespace: "pkg.a", Name: "Worker"},
		EndpointKind: model.EndpointActivity,
		Payload:      bundle.New().Set("n", bundle.Int64(7)),
		NotifyOn:     []string{"ping", "ping"},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	resp, out := post(t, srv.URL+"/api/v1/registrations", string(raw))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []any{"ping"}, out["notify_on"])
	require.Len(t, svc.registered, 1)
	assert.True(t, req.Equal(svc.registered[0]))

	resp, out = post(t, srv.URL+"/api/v1/registrations", `{"identity":{"namespace":"","name":"X"},"endpoint_kind":"Service"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["error"])

	resp, _ = post(t, srv.URL+"/api/v1/registrations", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.registerErr = fmt.Errorf("%w: upsert pkg.a/Worker: disk full", dao.ErrStore)
	resp, _ = post(t, srv.URL+"/api/v1/registrations", string(raw))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	svc.registerErr = service.ErrStopped
	resp, _ = post(t, srv.URL+"/api/v1/registrations", string(raw))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListRegistrations(t *testing.T) {
	srv, svc := newServer(t)
	svc.registered = []model.RegistrationRequest{{
		Identity:     model.Identity{Namespace: "pkg.a", Name: "Worker"},
		EndpointKind: model.EndpointService,
	}}

	resp, err := http.Get(srv.URL + "/api/v1/registrations")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out struct {
		Items []model.RegistrationRequest `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "pkg.a/Worker", out.Items[0].Identity.String())
}

func TestDispatchEvents(t *testing.T) {
	srv, svc := newServer(t)
	resp, out := post(t, srv.URL+"/api/v1/events", `{"events":["ping"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "d-1", out["dispatch_id"])
	assert.Len(t, out["matched"], 1)
	assert.Equal(t, [][]string{{"ping"}}, svc.dispatched)
}
