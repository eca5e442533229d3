package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"stemsplit/internal/history"
	"stemsplit/internal/logging"
	"stemsplit/internal/session"
)

// HistoryLister reads recent job records.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// Server exposes the session controller over HTTP.
type Server struct {
	bind     string
	logger   *slog.Logger
	ctrl     *session.Controller
	history  HistoryLister
	model    string
	validate *validator.Validate
	upgrader websocket.Upgrader

	listener net.Listener
	server   *http.Server

	// streams ends every open event stream on Stop; Shutdown does not track
	// hijacked websocket connections.
	streams     context.Context
	stopStreams context.CancelFunc
}

// NewServer builds the HTTP surface. hist may be nil when history is disabled.
func NewServer(bind string, ctrl *session.Controller, hist HistoryLister, model string, logger *slog.Logger) (*Server, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}
	if ctrl == nil {
		return nil, errors.New("session controller is required")
	}
	s := &Server{
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		ctrl:     ctrl,
		history:  hist,
		model:    model,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHostOrigin,
		},
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/jobs", s.handleStartJob).Methods(http.MethodPost)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/models", s.handleModels).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Start listens on the bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listen"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop closes open event streams and shuts the server down, waiting up to
// five seconds for open requests.
func (s *Server) Stop() {
	s.stopStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// sameHostOrigin accepts requests without an Origin header and those whose
// Origin host matches the request host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return strings.EqualFold(origin, r.Host)
}
