// Package session holds the registry of tracked terminal sessions and
// the key-assignment rules that keep every session key unique.
package session

import (
	"errors"

	"muster/internal/display"
	"muster/internal/handshake"
)

// BumpLimit bounds how many sessions may share one hostname. Hitting
// it is a hard per-host error, never a wraparound.
const BumpLimit = 255

var ErrKeySpaceExhausted = errors.New("session: bump counter exhausted for host")

// WindowRef is a write-once window handle. It starts unresolved and is
// resolved exactly once, when the handshake line arrives.
type WindowRef struct {
	id       display.WindowID
	resolved bool
}

func ResolvedWindow(id display.WindowID) WindowRef {
	return WindowRef{id: id, resolved: true}
}

func (w WindowRef) ID() (display.WindowID, bool) {
	return w.id, w.resolved
}

// Resolve sets the handle. Resolving twice is a programming error and
// is reported rather than silently overwriting.
func (w *WindowRef) Resolve(id display.WindowID) error {
	if w.resolved {
		return errors.New("session: window already resolved")
	}
	w.id = id
	w.resolved = true
	return nil
}

// Session is one externally running terminal+connection process.
type Session struct {
	// Key is unique within the registry: the hostname, optionally
	// suffixed with a bump number ("host", "host 1", ...).
	Key string

	// PID of the spawned process chain; 0 only in an error state.
	PID int

	Window WindowRef

	// Active marks whether the session receives broadcast input.
	// False until the handshake succeeds.
	Active bool

	// Descriptor is the original unparsed connect string, retained so
	// a closed session can be re-opened.
	Descriptor string

	Hostname string
	Username string

	// Pipe is the pending handshake channel; present only between
	// spawn and handshake completion.
	Pipe *handshake.Channel

	bumpNum uint8
}
