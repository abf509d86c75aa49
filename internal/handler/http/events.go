package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pharmacore-hq/attendance-gate-go/internal/handler/http/response"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/jwt"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/sse"
)

type EventsHandler interface {
	Stream(w http.ResponseWriter, r *http.Request)
	Token(w http.ResponseWriter, r *http.Request)
}

type eventsHandlerImpl struct {
	hub        *sse.Hub
	jwtService jwt.Service
}

func NewEventsHandler(hub *sse.Hub, jwtService jwt.Service) EventsHandler {
	return &eventsHandlerImpl{hub: hub, jwtService: jwtService}
}

// Token issues a short-lived token for opening the event stream. EventSource
// cannot set an Authorization header, so the stream authenticates via a
// query parameter instead.
func (h *eventsHandlerImpl) Token(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "user_id claim is missing or invalid")
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(userID)
	if err != nil {
		slog.Error("Failed to generate SSE token", "error", err)
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, map[string]any{
		"token":      token,
		"expires_in": expiresIn,
	})
}

// Stream opens the server-sent event stream carrying reminder and gate
// state events for one user.
func (h *eventsHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.Unauthorized(w, "Stream token is required")
		return
	}

	userID, err := h.jwtService.ValidateSSEToken(token)
	if err != nil {
		response.Unauthorized(w, "Invalid or expired stream token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming is not supported")
		return
	}

	events, cancel := h.hub.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event.Data)
			if err != nil {
				slog.Error("Failed to marshal event payload", "type", event.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
