package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"muster/internal/version"
)

type addHostsRequest struct {
	Hosts []string `json:"hosts"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type queuedResponse struct {
	Queued bool `json:"queued"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) *apiError {
	switch r.Method {
	case http.MethodGet:
		return s.listSessions(w, r)
	case http.MethodPost:
		return s.addHosts(w, r)
	default:
		return methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) *apiError {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	sessions, err := s.controller.Sessions(ctx)
	if err != nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "registry unavailable"}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	return nil
}

func (s *Server) addHosts(w http.ResponseWriter, r *http.Request) *apiError {
	var request addHostsRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return &apiError{Status: http.StatusBadRequest, Message: "invalid JSON body"}
	}
	hosts := make([]string, 0, len(request.Hosts))
	for _, host := range request.Hosts {
		if trimmed := strings.TrimSpace(host); trimmed != "" {
			hosts = append(hosts, trimmed)
		}
	}
	if len(hosts) == 0 {
		return &apiError{Status: http.StatusBadRequest, Message: "no hosts given"}
	}
	if !s.controller.RequestAddHosts(hosts) {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "command queue full"}
	}
	writeJSON(w, http.StatusAccepted, queuedResponse{Queued: true})
	return nil
}

func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}

	switch r.URL.Path {
	case "/api/sessions/close-inactive":
		return s.queue(w, s.controller.RequestCloseInactive())
	case "/api/sessions/reopen":
		return s.queue(w, s.controller.RequestReopenClosed())
	}

	if key, ok := sessionKeyFromPath(r.URL.Path, "active"); ok {
		var request setActiveRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			return &apiError{Status: http.StatusBadRequest, Message: "invalid JSON body"}
		}
		return s.queue(w, s.controller.RequestSetActive(key, request.Active))
	}

	return &apiError{Status: http.StatusNotFound, Message: "not found"}
}

func (s *Server) handleRetile(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}
	return s.queue(w, s.controller.RequestRetile())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	sessionCount := -1
	if sessions, err := s.controller.Sessions(ctx); err == nil {
		sessionCount = len(sessions)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  version.Get(),
		"sessions": sessionCount,
	})
	return nil
}

func (s *Server) queue(w http.ResponseWriter, queued bool) *apiError {
	if !queued {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "command queue full"}
	}
	writeJSON(w, http.StatusAccepted, queuedResponse{Queued: true})
	return nil
}
