package session

import (
	"fmt"
	"sort"
)

// Registry is the ordered collection of live sessions. It is owned and
// mutated by the cooperative loop only; it carries no internal locking
// on purpose, so any concurrent use is a bug the race detector can see.
type Registry struct {
	sessions map[string]*Session

	// closed collects connect descriptors of removed sessions, oldest
	// first, for the re-open operation.
	closed []string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.sessions)
}

func (r *Registry) Get(key string) (*Session, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.sessions[key]
	return s, ok
}

// Keys returns the session keys in sorted order. Sorted order is the
// placement order for tiling, so it must be stable between calls.
func (r *Registry) Keys() []string {
	if r == nil || len(r.sessions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Sessions returns the sessions in key order.
func (r *Registry) Sessions() []*Session {
	keys := r.Keys()
	out := make([]*Session, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.sessions[key])
	}
	return out
}

func (r *Registry) Insert(s *Session) {
	if r == nil || s == nil || s.Key == "" {
		return
	}
	r.sessions[s.Key] = s
}

// Remove deletes the session and returns it, or nil if absent.
func (r *Registry) Remove(key string) *Session {
	if r == nil {
		return nil
	}
	s, ok := r.sessions[key]
	if !ok {
		return nil
	}
	delete(r.sessions, key)
	return s
}

// ReserveKey assigns a unique key for hostname. The first request gets
// the bare hostname; repeats get "hostname N" with N from that
// hostname's bump counter, re-checked against existing suffixed keys.
// When the counter would pass BumpLimit the reservation fails.
func (r *Registry) ReserveKey(hostname string) (string, error) {
	if r == nil {
		return "", ErrKeySpaceExhausted
	}
	key := hostname
	for {
		existing, ok := r.sessions[key]
		if !ok {
			return key, nil
		}
		if existing.bumpNum == BumpLimit {
			return "", fmt.Errorf("%w: %s", ErrKeySpaceExhausted, hostname)
		}
		existing.bumpNum++
		key = fmt.Sprintf("%s %d", hostname, existing.bumpNum)
	}
}

// ClearBumpNums resets every bump counter so numbering restarts
// cleanly. Called only before re-opening a batch of closed hosts, when
// old suffixes have had a chance to free up.
func (r *Registry) ClearBumpNums() {
	if r == nil {
		return
	}
	for _, s := range r.sessions {
		s.bumpNum = 0
	}
}

// Info is a point-in-time copy of one session, safe to hand to other
// goroutines.
type Info struct {
	Key        string `json:"key"`
	PID        int    `json:"pid"`
	WindowID   uint64 `json:"window_id,omitempty"`
	Active     bool   `json:"active"`
	Descriptor string `json:"descriptor"`
	Hostname   string `json:"hostname"`
	Username   string `json:"username,omitempty"`
}

// Snapshot copies the registry into plain values, in key order.
func (r *Registry) Snapshot() []Info {
	sessions := r.Sessions()
	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		info := Info{
			Key:        s.Key,
			PID:        s.PID,
			Active:     s.Active,
			Descriptor: s.Descriptor,
			Hostname:   s.Hostname,
			Username:   s.Username,
		}
		if wid, ok := s.Window.ID(); ok {
			info.WindowID = uint64(wid)
		}
		out = append(out, info)
	}
	return out
}

// RecordClosed appends a connect descriptor to the recently-closed
// list.
func (r *Registry) RecordClosed(descriptor string) {
	if r == nil || descriptor == "" {
		return
	}
	r.closed = append(r.closed, descriptor)
}

// DrainClosed returns the recently-closed descriptors and clears the
// list.
func (r *Registry) DrainClosed() []string {
	if r == nil || len(r.closed) == 0 {
		return nil
	}
	out := r.closed
	r.closed = nil
	return out
}

func (r *Registry) ClosedCount() int {
	if r == nil {
		return 0
	}
	return len(r.closed)
}
