package tiling

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// calibrationConfig mirrors the long-standing calibration fixture:
// 80x24 terminals, 8-pixel-wide decorations, asymmetric reserves.
func calibrationConfig() Config {
	return Config{
		Columns:             80,
		Rows:                24,
		DecorationWidth:     8,
		DecorationHeight:    10,
		WindowReserveTop:    3,
		WindowReserveBottom: 1,
		WindowReserveLeft:   5,
		WindowReserveRight:  2,
		ScreenReserveTop:    1,
		ScreenReserveBottom: 60,
		ScreenReserveLeft:   2,
		ScreenReserveRight:  3,
		Direction:           TileRight,
	}
}

func TestComputeThreeStackedVertically(t *testing.T) {
	rects, err := Compute(3, 1024, 968, 8, 16, calibrationConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []Rect{
		{X: 7, Y: 4, W: 648, H: 298},
		{X: 7, Y: 306, W: 648, H: 298},
		{X: 7, Y: 608, W: 648, H: 298},
	}
	if !reflect.DeepEqual(rects, want) {
		t.Fatalf("got %v, want %v", rects, want)
	}
}

func TestComputeThreeAcross(t *testing.T) {
	cfg := calibrationConfig()
	cfg.Columns = 8 // narrow terminals stack horizontally
	rects, err := Compute(3, 1024, 968, 8, 16, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []Rect{
		{X: 7, Y: 4, W: 72, H: 394},
		{X: 86, Y: 4, W: 72, H: 394},
		{X: 165, Y: 4, W: 72, H: 394},
	}
	if !reflect.DeepEqual(rects, want) {
		t.Fatalf("got %v, want %v", rects, want)
	}
}

func TestComputeWrapsToSecondRow(t *testing.T) {
	cfg := calibrationConfig()
	cfg.Columns = 60 // two columns fit, third window wraps
	rects, err := Compute(3, 1024, 968, 8, 16, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []Rect{
		{X: 7, Y: 4, W: 488, H: 394},
		{X: 502, Y: 4, W: 488, H: 394},
		{X: 7, Y: 402, W: 488, H: 394},
	}
	if !reflect.DeepEqual(rects, want) {
		t.Fatalf("got %v, want %v", rects, want)
	}
}

func TestComputeShrinksOversizedWindows(t *testing.T) {
	cfg := calibrationConfig()
	cfg.Columns = 140 // wider than the screen: width kept, one column
	cfg.Rows = 70     // taller than the screen: height shrunk to fit
	rects, err := Compute(3, 1024, 968, 8, 16, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []Rect{
		{X: 7, Y: 4, W: 1128, H: 298},
		{X: 7, Y: 306, W: 1128, H: 298},
		{X: 7, Y: 608, W: 1128, H: 298},
	}
	if !reflect.DeepEqual(rects, want) {
		t.Fatalf("got %v, want %v", rects, want)
	}
}

func TestComputeZeroPaddingGrid(t *testing.T) {
	cfg := Config{
		Columns:   10,
		Rows:      5,
		Direction: TileRight,
	}
	rects, err := Compute(3, 200, 200, 10, 20, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []Rect{
		{X: 0, Y: 0, W: 100, H: 100},
		{X: 100, Y: 0, W: 100, H: 100},
		{X: 0, Y: 100, W: 100, H: 100},
	}
	if !reflect.DeepEqual(rects, want) {
		t.Fatalf("got %v, want %v", rects, want)
	}
}

func TestComputeEmptyLayout(t *testing.T) {
	rects, err := Compute(0, 1024, 968, 8, 16, calibrationConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if rects != nil {
		t.Fatalf("expected nil layout, got %v", rects)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	first, err := Compute(7, 1920, 1080, 9, 18, calibrationConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(7, 1920, 1080, 9, 18, calibrationConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("layouts differ: %v vs %v", first, second)
	}
}

func TestComputeOverflowIsHardError(t *testing.T) {
	cfg := calibrationConfig()
	cfg.ScreenReserveRight = math.MaxUint32
	if _, err := Compute(3, 1024, 968, 8, 16, cfg); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}

	cfg = calibrationConfig()
	cfg.Columns = 1 << 16
	if _, err := Compute(3, 1024, 968, 1<<16, 16, cfg); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected multiply overflow, got %v", err)
	}
}

func TestComputeTileRightNeverGoesNegative(t *testing.T) {
	// uint32 coordinates cannot be negative; the property to check is
	// that nothing wraps around to a huge value under sane inputs.
	rects, err := Compute(12, 2560, 1440, 7, 14, calibrationConfig())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, rect := range rects {
		if rect.X > 2560 || rect.Y > 4*1440 {
			t.Fatalf("suspicious placement %v", rect)
		}
	}
}

func TestComputeTileLeftClampsToZero(t *testing.T) {
	cfg := calibrationConfig()
	cfg.Direction = TileLeft
	rects, err := Compute(3, 1024, 968, 8, 16, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(rects) != 3 {
		t.Fatalf("expected 3 rects, got %d", len(rects))
	}
	for _, rect := range rects {
		if rect != (Rect{X: 0, Y: 0, W: 648, H: 298}) {
			t.Fatalf("unexpected rect %v", rect)
		}
	}
}
