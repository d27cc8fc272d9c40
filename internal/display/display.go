// Package display is the boundary to the window system backend.
// Placement requests are advisory: the window manager may ignore exact
// coordinates, and callers treat failures as log-worthy, never fatal.
package display

import "errors"

// WindowID identifies a window owned by the backend.
type WindowID uint64

var ErrUnavailable = errors.New("display unavailable")

type Display interface {
	// Size returns the screen dimensions in pixels.
	Size() (width, height uint32)

	Map(wid WindowID)
	Unmap(wid WindowID)
	Raise(wid WindowID)

	// Flush pushes buffered requests to the backend.
	Flush()

	ResizeMove(wid WindowID, x, y, width, height uint32) error
}
