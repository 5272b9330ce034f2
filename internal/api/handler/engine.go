package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/caseclicker-orchestrator/internal/api/response"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
)

// EngineController is the part of the engine the control API drives
type EngineController interface {
	Status(ctx context.Context) (*engine.Status, error)
	Start()
	Stop()
	Running() bool
}

// EngineHandler handles engine status and control endpoints
type EngineHandler struct {
	engine EngineController
}

// NewEngineHandler creates a new engine handler
func NewEngineHandler(e EngineController) *EngineHandler {
	return &EngineHandler{engine: e}
}

// Status handles GET /api/v1/status
func (h *EngineHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Status(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// Start handles POST /api/v1/engine/start
func (h *EngineHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.engine.Start()
	response.JSON(w, http.StatusOK, response.ControlResponse{Running: h.engine.Running()})
}

// Stop handles POST /api/v1/engine/stop
func (h *EngineHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	response.JSON(w, http.StatusOK, response.ControlResponse{Running: h.engine.Running()})
}
