package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/pharmacore-hq/attendance-gate-go/internal/domain/attendance"
	"github.com/pharmacore-hq/attendance-gate-go/internal/gate"
	"github.com/pharmacore-hq/attendance-gate-go/internal/handler/http/response"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	BreakIn(w http.ResponseWriter, r *http.Request)
	BreakOut(w http.ResponseWriter, r *http.Request)
	GetMy(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	AmendCheckIn(w http.ResponseWriter, r *http.Request)
	AmendCheckOut(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	manager *gate.Manager
}

func NewAttendanceHandler(manager *gate.Manager) AttendanceHandler {
	return &attendanceHandlerImpl{manager: manager}
}

// userIDFromContext pulls the injected session identity out of the verified
// token claims.
func userIDFromContext(ctx context.Context) (string, bool) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", false
	}
	userID, ok := claims["user_id"].(string)
	return userID, ok && userID != ""
}

func (h *attendanceHandlerImpl) session(w http.ResponseWriter, r *http.Request) (*gate.Session, bool) {
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

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req attendance.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode check-in request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := s.SubmitCheckIn(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check-in successful", s.Status())
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.SubmitCheckOut(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check-out successful", s.Status())
}

// BreakIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) BreakIn(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.SubmitBreakIn(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", s.Status())
}

// BreakOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) BreakOut(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.SubmitBreakOut(r.Context()); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", s.Status())
}

// GetMy returns today's mirrored record after a fresh fetch.
func (h *attendanceHandlerImpl) GetMy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Refresh(r.Context())
	status := s.Status()
	if status.Record == nil {
		response.Success(w, nil)
		return
	}
	response.Success(w, status.Record)
}

// History proxies the attendance history, newest work date first.
func (h *attendanceHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	records, err := s.History(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, records)
}

// AmendCheckIn forwards an administrative check-in correction.
func (h *attendanceHandlerImpl) AmendCheckIn(w http.ResponseWriter, r *http.Request) {
	h.amend(w, r, h.manager.AmendCheckIn)
}

// AmendCheckOut forwards an administrative check-out correction.
func (h *attendanceHandlerImpl) AmendCheckOut(w http.ResponseWriter, r *http.Request) {
	h.amend(w, r, h.manager.AmendCheckOut)
}

func (h *attendanceHandlerImpl) amend(w http.ResponseWriter, r *http.Request, forward func(ctx context.Context, userID, recordID, timestamp string) error) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "user_id claim is missing or invalid")
		return
	}

	recordID := chi.URLParam(r, "id")
	if recordID == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	var req attendance.AmendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode amend request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if err := forward(r.Context(), userID, recordID, req.Timestamp); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance record amended", nil)
}
