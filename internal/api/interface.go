package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/grand-thief-cash/resurrector/internal/service"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

// RegistryService is what the controller needs from the resurrector component.
type RegistryService interface {
	Submit(ctx context.Context, msg wire.Message)
	Register(ctx context.Context, req model.RegistrationRequest) error
	Dispatch(ctx context.Context, events []string) (service.DispatchResult, error)
	Registrations() []model.RegistrationRequest
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeStatus(w, code, map[string]string{"error": msg})
}
