package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsReadBufferSize,
	WriteBufferSize: wsWriteBufferSize,
	// Local control surface; origin checks add nothing over the token.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleEventsStream(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}
	output, cancel := s.events.Subscribe()
	defer cancel()
	serveStreamChannel(s, w, r, output, nil)
}

func (s *Server) handleLogsStream(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		http.Error(w, "logs unavailable", http.StatusServiceUnavailable)
		return
	}
	output, cancel := s.logger.Subscribe()
	defer cancel()

	recent := s.logger.Recent()
	replay := func(conn *websocket.Conn) error {
		for _, entry := range recent {
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return err
			}
			if err := conn.WriteJSON(entry); err != nil {
				return err
			}
		}
		return nil
	}
	serveStreamChannel(s, w, r, output, replay)
}

// serveStreamChannel upgrades the connection and forwards the channel
// until either side goes away. preWrite runs before live forwarding
// starts, for backlog replay.
func serveStreamChannel[T any](s *Server, w http.ResponseWriter, r *http.Request, output <-chan T, preWrite func(*websocket.Conn) error) {
	if !validateToken(r, s.token) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", map[string]string{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
		}
		return
	}
	defer conn.Close()

	if preWrite != nil {
		if err := preWrite(conn); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case value, ok := <-output:
				if !ok {
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
				if err := conn.WriteJSON(value); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}()

	// Block on the read side so client close frames end the stream.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	_ = conn.Close()
	<-done
}
