// Package server exposes the session registry over HTTP/JSON plus two
// websocket streams. Every mutating request is queued to the
// reconciliation loop; the server never touches the registry directly.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"muster/internal/event"
	"muster/internal/logging"
	"muster/internal/session"
)

const queryTimeout = 5 * time.Second

// Controller is what the server needs from the monitoring loop.
type Controller interface {
	Sessions(ctx context.Context) ([]session.Info, error)
	RequestAddHosts(hosts []string) bool
	RequestSetActive(key string, active bool) bool
	RequestCloseInactive() bool
	RequestReopenClosed() bool
	RequestRetile() bool
}

type Options struct {
	Port       int
	AuthToken  string
	Controller Controller
	Events     *event.Bus[event.SessionEvent]
	Logger     *logging.Logger
}

type Server struct {
	port       int
	token      string
	controller Controller
	events     *event.Bus[event.SessionEvent]
	logger     *logging.Logger

	httpServer *http.Server
}

func New(options Options) *Server {
	return &Server{
		port:       options.Port,
		token:      options.AuthToken,
		controller: options.Controller,
		events:     options.Events,
		logger:     options.Logger,
	}
}

// Routes builds the handler tree. Exposed separately so tests can
// drive it through httptest without a listener.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/sessions", restHandler(s.token, s.handleSessions))
	mux.Handle("/api/sessions/", restHandler(s.token, s.handleSessionAction))
	mux.Handle("/api/retile", restHandler(s.token, s.handleRetile))
	mux.Handle("/api/status", restHandler(s.token, s.handleStatus))
	mux.HandleFunc("/api/events", s.handleEventsStream)
	mux.HandleFunc("/api/logs", s.handleLogsStream)
	return mux
}

// Start listens on the configured port. It returns once the listener
// is bound; serving continues in a goroutine until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("control server listen: %w", err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.logger != nil {
		s.logger.Info("control server listening", map[string]string{
			"addr": listener.Addr().String(),
		})
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Error("control server stopped", map[string]string{
					"error": err.Error(),
				})
			}
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// sessionKeyFromPath extracts the key from /api/sessions/{key}/{verb}
// paths. Keys may contain spaces ("host 1"), which arrive URL-encoded
// and are already decoded by the mux.
func sessionKeyFromPath(path, verb string) (string, bool) {
	rest := strings.TrimPrefix(path, "/api/sessions/")
	if rest == path {
		return "", false
	}
	key := strings.TrimSuffix(rest, "/"+verb)
	if key == rest || key == "" {
		return "", false
	}
	return key, true
}
