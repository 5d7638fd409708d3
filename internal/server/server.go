// Package server exposes the event review view-model as a local JSON API
// with websocket notifications.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"eventreview/internal/dashboard"
	"eventreview/internal/metrics"
	"eventreview/internal/websocket"
)

// Server wires the router to one EventManager and one websocket hub.
type Server struct {
	logger    *slog.Logger
	manager   *dashboard.EventManager
	hub       *websocket.Hub
	presenter *websocket.Presenter
	router    *mux.Router
}

// New creates a server. presenter may be nil when no change broadcasts are
// wanted.
func New(logger *slog.Logger, manager *dashboard.EventManager, hub *websocket.Hub, presenter *websocket.Presenter) *Server {
	s := &Server{
		logger:    logger,
		manager:   manager,
		hub:       hub,
		presenter: presenter,
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()

	r.Use(Logging(s.logger))
	r.Use(ErrorRecovery(s.logger))

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.websocketUpgrade).Methods(http.MethodGet)

	api.HandleFunc("/state", s.getState).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.reload).Methods(http.MethodPost)
	api.HandleFunc("/filter", s.setFilter).Methods(http.MethodPut)

	api.HandleFunc("/events/{uid}/status", s.updateStatus).Methods(http.MethodPost)
	api.HandleFunc("/events/{uid}/organization", s.updateOrganization).Methods(http.MethodPost)
	api.HandleFunc("/events/{uid}/type", s.updateType).Methods(http.MethodPost)
	api.HandleFunc("/events/{uid}/location", s.saveLocation).Methods(http.MethodPost)
	api.HandleFunc("/events/{uid}/edits/{field}", s.getEdit).Methods(http.MethodGet)
	api.HandleFunc("/events/{uid}/edits/{field}/{action}", s.edit).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, ErrNotFound, "Resource not found")
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Refresh reloads events and stats and tells connected clients.
func (s *Server) Refresh(ctx context.Context) error {
	if err := s.manager.Load(ctx); err != nil {
		return err
	}
	s.manager.LoadStats(ctx)
	s.broadcastChanged()
	return nil
}

func (s *Server) broadcastChanged() {
	if s.presenter != nil {
		s.presenter.EventsChanged(s.manager.TotalEvents(), s.manager.VisibleEvents())
	}
}
