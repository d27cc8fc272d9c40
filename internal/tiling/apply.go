package tiling

import (
	"strconv"
	"time"

	"muster/internal/display"
	"muster/internal/logging"
)

// Engine applies computed layouts through the display capability.
type Engine struct {
	Display display.Display
	Logger  *logging.Logger

	// UnmapOnRedraw hides each window before moving it.
	UnmapOnRedraw bool

	// Delay is an optional per-placement wait for slow window
	// managers; zero disables it.
	Delay time.Duration

	// Sleep is swappable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// Apply issues placement requests for each window in layout order,
// then re-maps all windows in reverse order so the most recently added
// session ends up on top. Placement is advisory: display errors are
// logged and never abort the pass.
func (e *Engine) Apply(layout []Rect, wids []display.WindowID, raise bool) {
	if e == nil || e.Display == nil {
		return
	}
	n := len(layout)
	if len(wids) < n {
		n = len(wids)
	}

	for i := 0; i < n; i++ {
		if e.UnmapOnRedraw {
			e.Display.Unmap(wids[i])
		}
		rect := layout[i]
		if err := e.Display.ResizeMove(wids[i], rect.X, rect.Y, rect.W, rect.H); err != nil {
			e.Logger.Warn("resize/move rejected", map[string]string{
				"wid":   strconv.FormatUint(uint64(wids[i]), 10),
				"error": err.Error(),
			})
		}
		e.Display.Flush()
		e.sleep()
	}

	for i := n - 1; i >= 0; i-- {
		e.Display.Map(wids[i])
		if raise {
			e.Display.Raise(wids[i])
		}
		e.Display.Flush()
		e.sleep()
	}
}

func (e *Engine) sleep() {
	if e == nil || e.Delay <= 0 {
		return
	}
	if e.Sleep != nil {
		e.Sleep(e.Delay)
		return
	}
	time.Sleep(e.Delay)
}
