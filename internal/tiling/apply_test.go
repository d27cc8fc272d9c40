package tiling

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"muster/internal/display"
	"muster/internal/logging"
)

type traceDisplay struct {
	w, h    uint32
	trace   []string
	moveErr error
}

func (d *traceDisplay) Size() (uint32, uint32) { return d.w, d.h }
func (d *traceDisplay) Map(wid display.WindowID) {
	d.trace = append(d.trace, fmt.Sprintf("map %d", wid))
}
func (d *traceDisplay) Unmap(wid display.WindowID) {
	d.trace = append(d.trace, fmt.Sprintf("unmap %d", wid))
}
func (d *traceDisplay) Raise(wid display.WindowID) {
	d.trace = append(d.trace, fmt.Sprintf("raise %d", wid))
}
func (d *traceDisplay) Flush() {
	d.trace = append(d.trace, "flush")
}
func (d *traceDisplay) ResizeMove(wid display.WindowID, x, y, w, h uint32) error {
	d.trace = append(d.trace, fmt.Sprintf("move %d %d,%d %dx%d", wid, x, y, w, h))
	return d.moveErr
}

func filterTrace(trace []string, keep ...string) []string {
	var out []string
	for _, entry := range trace {
		for _, prefix := range keep {
			if len(entry) >= len(prefix) && entry[:len(prefix)] == prefix {
				out = append(out, entry)
				break
			}
		}
	}
	return out
}

func TestApplyMovesThenMapsInReverse(t *testing.T) {
	fake := &traceDisplay{w: 1024, h: 968}
	engine := &Engine{
		Display: fake,
		Logger:  logging.NewLoggerWithOutput(logging.LevelError, nil),
	}

	rects, err := Compute(3, 1024, 968, 8, 16, calibrationConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	engine.Apply(rects, []display.WindowID{1, 2, 3}, false)

	got := filterTrace(fake.trace, "move", "map")
	want := []string{
		"move 1 7,4 648x298",
		"move 2 7,306 648x298",
		"move 3 7,608 648x298",
		"map 3",
		"map 2",
		"map 1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyRaisesWhenRequested(t *testing.T) {
	fake := &traceDisplay{w: 200, h: 200}
	engine := &Engine{
		Display: fake,
		Logger:  logging.NewLoggerWithOutput(logging.LevelError, nil),
	}
	engine.Apply([]Rect{{0, 0, 100, 100}}, []display.WindowID{7}, true)

	got := filterTrace(fake.trace, "raise")
	if !reflect.DeepEqual(got, []string{"raise 7"}) {
		t.Fatalf("got %v", got)
	}
}

func TestApplyUnmapsBeforeMovingWhenConfigured(t *testing.T) {
	fake := &traceDisplay{w: 200, h: 200}
	engine := &Engine{
		Display:       fake,
		Logger:        logging.NewLoggerWithOutput(logging.LevelError, nil),
		UnmapOnRedraw: true,
	}
	engine.Apply([]Rect{{0, 0, 100, 100}}, []display.WindowID{7}, false)

	got := filterTrace(fake.trace, "unmap", "move", "map")
	want := []string{"unmap 7", "move 7 0,0 100x100", "map 7"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestApplyContinuesPastDisplayErrors(t *testing.T) {
	fake := &traceDisplay{w: 200, h: 200, moveErr: display.ErrUnavailable}
	engine := &Engine{
		Display: fake,
		Logger:  logging.NewLoggerWithOutput(logging.LevelError, nil),
	}
	engine.Apply([]Rect{{0, 0, 100, 100}, {100, 0, 100, 100}}, []display.WindowID{1, 2}, false)

	moves := filterTrace(fake.trace, "move")
	if len(moves) != 2 {
		t.Fatalf("expected both moves despite errors, got %v", moves)
	}
}

func TestApplySleepsOnlyWhenDelayed(t *testing.T) {
	fake := &traceDisplay{w: 200, h: 200}
	slept := 0
	engine := &Engine{
		Display: fake,
		Logger:  logging.NewLoggerWithOutput(logging.LevelError, nil),
		Delay:   100 * time.Millisecond,
		Sleep:   func(time.Duration) { slept++ },
	}
	engine.Apply([]Rect{{0, 0, 100, 100}}, []display.WindowID{1}, false)
	if slept != 2 { // once after the move, once after the map
		t.Fatalf("expected 2 sleeps, got %d", slept)
	}

	slept = 0
	engine.Delay = 0
	engine.Apply([]Rect{{0, 0, 100, 100}}, []display.WindowID{1}, false)
	if slept != 0 {
		t.Fatalf("expected no sleeps, got %d", slept)
	}
}
