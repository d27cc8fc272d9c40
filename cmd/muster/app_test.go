package main

import (
	"testing"

	"muster/internal/config"
	"muster/internal/tiling"
)

func TestParseFontMetrics(t *testing.T) {
	tests := []struct {
		font string
		w, h uint32
	}{
		{"6x13", 6, 13},
		{"8x16", 8, 16},
		{" 8x16 ", 8, 16},
		{"fixed", 6, 13},
		{"0x0", 6, 13},
		{"", 6, 13},
	}
	for _, test := range tests {
		w, h := parseFontMetrics(test.font)
		if w != test.w || h != test.h {
			t.Fatalf("%q: got %dx%d, want %dx%d", test.font, w, h, test.w, test.h)
		}
	}
}

func TestTilingConfigMapsSettings(t *testing.T) {
	settings := config.Defaults()
	settings.Terminal.Columns = 80
	settings.Terminal.Rows = 24
	settings.Terminal.DecorationWidth = 8
	settings.Terminal.DecorationHeight = 10
	settings.Screen.ReserveBottom = 60
	settings.Tiling.Direction = "left"

	cfg := tilingConfig(settings)
	if cfg.Columns != 80 || cfg.Rows != 24 {
		t.Fatalf("text size = %dx%d", cfg.Columns, cfg.Rows)
	}
	if cfg.ScreenReserveBottom != 60 {
		t.Fatalf("screen reserve bottom = %d", cfg.ScreenReserveBottom)
	}
	if cfg.Direction != tiling.TileLeft {
		t.Fatalf("direction = %v", cfg.Direction)
	}

	settings.Tiling.Direction = "right"
	if cfg := tilingConfig(settings); cfg.Direction != tiling.TileRight {
		t.Fatalf("direction = %v", cfg.Direction)
	}
}
