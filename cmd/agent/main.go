package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmacore-hq/attendance-gate-go/internal/backend"
	"github.com/pharmacore-hq/attendance-gate-go/internal/config"
	"github.com/pharmacore-hq/attendance-gate-go/internal/gate"
	appHTTP "github.com/pharmacore-hq/attendance-gate-go/internal/handler/http"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/jwt"
	"github.com/pharmacore-hq/attendance-gate-go/internal/pkg/sse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	backendClient := backend.NewClient(cfg.Backend)
	hub := sse.NewHub()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	manager := gate.NewManager(cfg.Gate, backendClient, hub)

	attendanceHandler := appHTTP.NewAttendanceHandler(manager)
	gateHandler := appHTTP.NewGateHandler(manager)
	eventsHandler := appHTTP.NewEventsHandler(hub, JWTService)

	router := appHTTP.NewRouter(
		JWTService,
		attendanceHandler,
		gateHandler,
		eventsHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:    port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		fmt.Printf("Attendance gate running at http://localhost%s\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("Server error:", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Stop all reminder timers and poll loops before the process exits.
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Println("Shutdown error:", err)
	}
}
