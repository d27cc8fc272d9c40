// Package tiling computes window rectangles for all live sessions and
// applies them through the display capability. The computation is pure
// and deterministic; every arithmetic step is overflow-checked and a
// bad result is a hard error, never a silent clamp.
package tiling

import (
	"errors"
	"fmt"
)

type Direction int

const (
	// TileRight places windows left-to-right, top-to-bottom.
	TileRight Direction = iota
	// TileLeft is a preserved legacy policy: every window lands on the
	// same screen-relative coordinate, clamped to zero. Kept for
	// compatibility, not a design goal.
	TileLeft
)

// Config carries the geometry inputs: terminal text size, decoration
// pixels, and the per-window and whole-screen margins, all in pixels
// except Columns and Rows.
type Config struct {
	Columns          uint32
	Rows             uint32
	DecorationWidth  uint32
	DecorationHeight uint32

	WindowReserveTop    uint32
	WindowReserveBottom uint32
	WindowReserveLeft   uint32
	WindowReserveRight  uint32

	ScreenReserveTop    uint32
	ScreenReserveBottom uint32
	ScreenReserveLeft   uint32
	ScreenReserveRight  uint32

	Direction Direction
}

// Rect is one window placement, in pixels.
type Rect struct {
	X, Y, W, H uint32
}

var ErrOverflow = errors.New("tiling: arithmetic overflow")

// Compute returns one rectangle per session, in placement order.
// count == 0 yields an empty layout: the caller shows only the control
// window.
func Compute(count uint32, screenW, screenH, fontW, fontH uint32, cfg Config) ([]Rect, error) {
	if count == 0 {
		return nil, nil
	}

	// Window pixel size from terminal text size and font metrics; the
	// text area only, decorations added on top.
	w, ok := checkedDim(mulAdd(cfg.Columns, fontW, cfg.DecorationWidth))
	if !ok {
		return nil, fmt.Errorf("window width: %w", ErrOverflow)
	}
	h, ok := checkedDim(mulAdd(cfg.Rows, fontH, cfg.DecorationHeight))
	if !ok {
		return nil, fmt.Errorf("window height: %w", ErrOverflow)
	}

	wReserve, ok := checkedDim(add3(w, cfg.WindowReserveLeft, cfg.WindowReserveRight))
	if !ok {
		return nil, fmt.Errorf("window width reserve: %w", ErrOverflow)
	}

	usableW, ok := sub2(screenW, cfg.ScreenReserveLeft, cfg.ScreenReserveRight)
	if !ok {
		return nil, fmt.Errorf("screen width reserve: %w", ErrOverflow)
	}
	columns := usableW / wReserve
	if columns == 0 {
		// A window wider than the screen still gets one column.
		columns = 1
	}

	rows := count / columns
	if count%columns > 0 {
		rows++
	}

	// Shrink (never grow) the window height until all rows fit the
	// vertical screen budget.
	usableH, ok := sub2(screenH, cfg.ScreenReserveTop, cfg.ScreenReserveBottom)
	if !ok {
		return nil, fmt.Errorf("screen height reserve: %w", ErrOverflow)
	}
	rowReserve, ok := checkedAdd(cfg.WindowReserveTop, cfg.WindowReserveBottom)
	if !ok {
		return nil, fmt.Errorf("row reserve: %w", ErrOverflow)
	}
	totalRowReserve, ok := checkedMul(rows, rowReserve)
	if !ok {
		return nil, fmt.Errorf("row reserve: %w", ErrOverflow)
	}
	budget, ok := checkedSub(usableH, totalRowReserve)
	if !ok {
		return nil, fmt.Errorf("vertical budget: %w", ErrOverflow)
	}
	if fit := budget / rows; fit < h {
		h = fit
	}

	if cfg.Direction == TileLeft {
		return computeLeft(count, screenW, screenH, w, h, cfg), nil
	}
	return computeRight(count, w, h, columns, wReserve, cfg), nil
}

func computeRight(count uint32, w, h, columns, wReserve uint32, cfg Config) []Rect {
	defaultX := saturatingAdd(cfg.ScreenReserveLeft, cfg.WindowReserveLeft)
	x := defaultX
	y := saturatingAdd(cfg.ScreenReserveTop, cfg.WindowReserveTop)
	hReserve := saturatingAdd(saturatingAdd(cfg.WindowReserveTop, cfg.WindowReserveBottom), h)

	rects := make([]Rect, 0, count)
	column := uint32(0)
	for i := uint32(0); i < count; i++ {
		rects = append(rects, Rect{X: x, Y: y, W: w, H: h})
		column++
		if column < columns {
			if next, ok := checkedAdd(x, wReserve); ok {
				x = next
			} else {
				x = defaultX
			}
		} else {
			x = defaultX
			if next, ok := checkedAdd(y, hReserve); ok {
				y = next
			}
			column = 0
		}
	}
	return rects
}

// computeLeft reproduces the legacy placement: one shared coordinate,
// computed by a subtraction that in practice underflows and clamps to
// zero.
func computeLeft(count uint32, screenW, screenH, w, h uint32, cfg Config) []Rect {
	x := uint32(0)
	if v, ok := sub3(cfg.ScreenReserveRight, screenW, cfg.WindowReserveRight, w); ok {
		x = v
	}
	y := uint32(0)
	if v, ok := sub3(cfg.ScreenReserveBottom, screenH, cfg.WindowReserveBottom, h); ok {
		y = v
	}
	rects := make([]Rect, count)
	for i := range rects {
		rects[i] = Rect{X: x, Y: y, W: w, H: h}
	}
	return rects
}

func checkedAdd(a, b uint32) (uint32, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

func checkedSub(a, b uint32) (uint32, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

func checkedMul(a, b uint32) (uint32, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/a != b {
		return 0, false
	}
	return product, true
}

func saturatingAdd(a, b uint32) uint32 {
	if sum, ok := checkedAdd(a, b); ok {
		return sum
	}
	return a
}

// mulAdd computes a*b+c with overflow checking.
func mulAdd(a, b, c uint32) (uint32, bool) {
	product, ok := checkedMul(a, b)
	if !ok {
		return 0, false
	}
	return checkedAdd(product, c)
}

func add3(a, b, c uint32) (uint32, bool) {
	sum, ok := checkedAdd(a, b)
	if !ok {
		return 0, false
	}
	return checkedAdd(sum, c)
}

// sub2 computes a-b-c with underflow checking.
func sub2(a, b, c uint32) (uint32, bool) {
	v, ok := checkedSub(a, b)
	if !ok {
		return 0, false
	}
	return checkedSub(v, c)
}

// sub3 computes a-b-c-d with underflow checking.
func sub3(a, b, c, d uint32) (uint32, bool) {
	v, ok := sub2(a, b, c)
	if !ok {
		return 0, false
	}
	return checkedSub(v, d)
}

// checkedDim rejects zero results: a zero-pixel window or reserve is
// as unusable as an overflowed one.
func checkedDim(v uint32, ok bool) (uint32, bool) {
	if !ok || v == 0 {
		return 0, false
	}
	return v, true
}
