package event

import "time"

type SessionEventType string

const (
	SessionOpened  SessionEventType = "opened"
	SessionActive  SessionEventType = "active"
	SessionClosed  SessionEventType = "closed"
	SessionRetiled SessionEventType = "retiled"
)

type SessionEvent struct {
	Type       SessionEventType  `json:"type"`
	SessionKey string            `json:"session_key,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Data       map[string]string `json:"data,omitempty"`
}

func NewSessionEvent(eventType SessionEventType, key string, data map[string]string) SessionEvent {
	return SessionEvent{
		Type:       eventType,
		SessionKey: key,
		Timestamp:  time.Now().UTC(),
		Data:       data,
	}
}
