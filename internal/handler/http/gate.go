package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/pharmacore-hq/attendance-gate-go/internal/gate"
	"github.com/pharmacore-hq/attendance-gate-go/internal/handler/http/response"
)

type GateHandler interface {
	Status(w http.ResponseWriter, r *http.Request)
	UpdatePosition(w http.ResponseWriter, r *http.Request)
}

type gateHandlerImpl struct {
	manager *gate.Manager
}

func NewGateHandler(manager *gate.Manager) GateHandler {
	return &gateHandlerImpl{manager: manager}
}

func (h *gateHandlerImpl) session(w http.ResponseWriter, r *http.Request) (*gate.Session, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "user_id claim is missing or invalid")
		return nil, false
	}
	s := h.manager.Session(r.Context(), userID)
	if s == nil {
		response.ServiceUnavailable(w, "Attendance gate is shutting down")
		return nil, false
	}
	return s, true
}

// Status returns the current gate flags, geofence result and per-action
// decisions for the authenticated user.
func (h *gateHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.Success(w, s.Status())
}

// UpdatePosition ingests a fresh position fix for the authenticated user.
func (h *gateHandlerImpl) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req attendance.PositionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode position update", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	s.UpdatePosition(attendance.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude})
	response.Success(w, s.Status())
}
