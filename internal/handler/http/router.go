package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/pharmacore-hq/attendance-gate-go/internal/handler/http/middleware"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/jwt"
)

func NewRouter(JWTService jwt.Service, attendanceHandler AttendanceHandler, gateHandler GateHandler, eventsHandler EventsHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-gate"),
		slog.String("version", "v1.0.0"),
		slog.String("env", "development"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Authenticated via short-lived stream token in the query string;
		// EventSource cannot send an Authorization header.
		r.Get("/events", eventsHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Get("/events/token", eventsHandler.Token)

			r.Route("/gate", func(r chi.Router) {
				r.Get("/status", gateHandler.Status)
				r.Post("/position", gateHandler.UpdatePosition)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/my", attendanceHandler.GetMy)
				r.Get("/history", attendanceHandler.History)
				r.Post("/check-in", attendanceHandler.CheckIn)
				r.Post("/check-out", attendanceHandler.CheckOut)
				r.Post("/break-in", attendanceHandler.BreakIn)
				r.Post("/break-out", attendanceHandler.BreakOut)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Route("/record/{id}", func(r chi.Router) {
						r.Patch("/check-in", attendanceHandler.AmendCheckIn)
						r.Patch("/check-out", attendanceHandler.AmendCheckOut)
					})
				})
			})
		})
	})
	return r
}
