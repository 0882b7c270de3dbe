package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/http_server"
	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	bizConsts "github.com/grand-thief-cash/resurrector/internal/consts"
	"github.com/grand-thief-cash/resurrector/internal/service"
	"github.com/grand-thief-cash/resurrector/model"
	"github.com/grand-thief-cash/resurrector/wire"
)

const maxBodyBytes = 1 << 20

type ResurrectorController struct {
	*core.BaseComponent
	Svc RegistryService `infra:"dep:resurrector"`
}

func NewResurrectorController() *ResurrectorController {
	return &ResurrectorController{BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_RESURRECTOR)}
}

func init() {
	http_server.RegisterRoutes(func(r chi.Router, c *core.Container) error {
		comp, err := c.Resolve(bizConsts.COMP_CTRL_RESURRECTOR)
		if err != nil {
			return err
		}
		ctrl, ok := comp.(*ResurrectorController)
		if !ok {
			return fmt.Errorf("resurrector_ctrl type assertion failed")
		}
		ctrl.Mount(r)
		return nil
	})
}

// Mount registers the /api/v1 routes on r.
func (c *ResurrectorController) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", c.postMessage)
		r.Get("/registrations", c.listRegistrations)
		r.Post("/registrations", c.createRegistration)
		r.Post("/events", c.dispatchEvents)
	})
}

// postMessage accepts a submission message. The answer is always 202;
// rejected messages are only logged.
func (c *ResurrectorController) postMessage(w http.ResponseWriter, r *http.Request) {
	defer writeStatus(w, http.StatusAccepted, map[string]any{"accepted": true})

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logging.Debug(r.Context(), "message body unreadable", zap.Error(err))
		return
	}
	if action := gjson.GetBytes(body, "action").String(); !wire.IsSubmission(action) {
		logging.Debug(r.Context(), "message ignored", zap.String("action", action))
		return
	}
	var msg wire.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		logging.Debug(r.Context(), "message not decodable", zap.Error(err))
		return
	}
	c.Svc.Submit(r.Context(), msg)
}

func (c *ResurrectorController) createRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.Svc.Register(r.Context(), req); err != nil {
		writeErr(w, statusOf(err), err.Error())
		return
	}
	writeStatus(w, http.StatusCreated, req.Normalized())
}

func (c *ResurrectorController) listRegistrations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"items": c.Svc.Registrations()})
}

func (c *ResurrectorController) dispatchEvents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Events []string `json:"events"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := c.Svc.Dispatch(r.Context(), body.Events)
	if err != nil {
		writeErr(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, res)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidIdentity), errors.Is(err, model.ErrInvalidEndpointKind):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStopped), errors.Is(err, service.ErrDispatcherStopped),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
