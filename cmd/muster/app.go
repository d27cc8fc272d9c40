package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"muster/internal/config"
	"muster/internal/display"
	"muster/internal/event"
	"muster/internal/logging"
	"muster/internal/monitor"
	"muster/internal/server"
	"muster/internal/session"
	"muster/internal/spawn"
	"muster/internal/tiling"
	"muster/internal/watcher"
)

type app struct {
	configPath string
	title      string
	logger     *logging.Logger
	registry   *session.Registry
	events     *event.Bus[event.SessionEvent]
	display    display.Display

	// settings may be swapped by the config watcher; retile reads it
	// under the mutex and the spawner is refreshed on reload. The
	// monitor keeps its boot-time interval.
	mu       sync.Mutex
	settings config.Settings
}

func newApp(settings config.Settings, configPath, title string, logger *logging.Logger) *app {
	return &app{
		configPath: configPath,
		title:      title,
		logger:     logger,
		registry:   session.NewRegistry(),
		events:     event.NewBus[event.SessionEvent](64),
		display:    display.NewNull(),
		settings:   settings,
	}
}

func (a *app) run(hosts []string) int {
	stopReaper := monitor.StartReaper()
	defer stopReaper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exe, err := os.Executable()
	if err != nil {
		a.logger.Error("cannot locate own binary", map[string]string{"error": err.Error()})
		return 1
	}

	settings := a.currentSettings()
	spawner := &spawn.Spawner{
		Settings: settings,
		Logger:   a.logger,
		Events:   a.events,
		Exe:      exe,
		Title:    a.title,
	}

	mon := monitor.New(monitor.Options{
		Registry:      a.registry,
		Logger:        a.logger,
		Events:        a.events,
		Display:       a.display,
		Spawner:       spawner,
		Interval:      time.Duration(settings.Monitor.IntervalMS) * time.Millisecond,
		AutoQuit:      settings.Monitor.AutoQuit != nil && *settings.Monitor.AutoQuit,
		RequestRetile: a.retile,
		RequestQuit:   cancel,
	})

	if settings.Server.Port > 0 {
		controlServer := server.New(server.Options{
			Port:       settings.Server.Port,
			AuthToken:  settings.Server.AuthToken,
			Controller: mon,
			Events:     a.events,
			Logger:     a.logger,
		})
		if err := controlServer.Start(); err != nil {
			a.logger.Error("control server failed to start", map[string]string{
				"error": err.Error(),
			})
			return 1
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = controlServer.Shutdown(shutdownCtx)
		}()
	}

	if a.configPath != "" {
		configWatch, err := watcher.New(watcher.Options{
			Path:   a.configPath,
			Logger: a.logger,
			OnChange: func() {
				if settings, ok := a.reloadConfig(); ok {
					spawner.SetSettings(settings)
				}
				mon.RequestRetile()
			},
		})
		if err != nil {
			a.logger.Warn("config watch unavailable", map[string]string{
				"path":  a.configPath,
				"error": err.Error(),
			})
		} else {
			defer configWatch.Close()
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		a.logger.Info("shutdown signal received", nil)
		cancel()
	}()

	if len(hosts) > 0 {
		if spawner.OpenBatch(a.registry, hosts) {
			mon.NoteActivated()
		}
		a.retile(true)
	}

	mon.Run(ctx)
	a.events.Close()
	return 0
}

func (a *app) currentSettings() config.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

func (a *app) reloadConfig() (config.Settings, bool) {
	settings, err := config.Load(a.configPath)
	if err != nil {
		a.logger.Warn("config reload failed", map[string]string{
			"error": err.Error(),
		})
		return config.Settings{}, false
	}
	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()
	a.logger.Info("config reloaded", map[string]string{"path": a.configPath})
	return settings, true
}

// retile recomputes and applies the layout for all resolved windows.
// Runs on the loop goroutine (via the monitor's retile requests), which
// is the only place registry iteration is safe.
func (a *app) retile(raise bool) {
	settings := a.currentSettings()
	if settings.Tiling.Enabled != nil && !*settings.Tiling.Enabled {
		return
	}

	var wids []display.WindowID
	for _, sess := range a.registry.Sessions() {
		if wid, ok := sess.Window.ID(); ok {
			wids = append(wids, wid)
		}
	}
	if len(wids) == 0 {
		return
	}

	screenW, screenH := a.display.Size()
	fontW, fontH := parseFontMetrics(settings.Terminal.Font)
	layout, err := tiling.Compute(uint32(len(wids)), screenW, screenH, fontW, fontH, tilingConfig(settings))
	if err != nil {
		a.logger.Error("layout computation failed", map[string]string{
			"sessions": strconv.Itoa(len(wids)),
			"error":    err.Error(),
		})
		return
	}

	engine := &tiling.Engine{
		Display:       a.display,
		Logger:        a.logger,
		UnmapOnRedraw: settings.Tiling.UnmapOnRedraw,
		Delay:         time.Duration(settings.Tiling.DelayMS) * time.Millisecond,
	}
	engine.Apply(layout, wids, raise)
	a.events.Publish(event.NewSessionEvent(event.SessionRetiled, "", map[string]string{
		"windows": strconv.Itoa(len(wids)),
	}))
}

func tilingConfig(settings config.Settings) tiling.Config {
	direction := tiling.TileRight
	if settings.Tiling.Direction == "left" {
		direction = tiling.TileLeft
	}
	terminal := settings.Terminal
	screen := settings.Screen
	return tiling.Config{
		Columns:             terminal.Columns,
		Rows:                terminal.Rows,
		DecorationWidth:     terminal.DecorationWidth,
		DecorationHeight:    terminal.DecorationHeight,
		WindowReserveTop:    terminal.ReserveTop,
		WindowReserveBottom: terminal.ReserveBottom,
		WindowReserveLeft:   terminal.ReserveLeft,
		WindowReserveRight:  terminal.ReserveRight,
		ScreenReserveTop:    screen.ReserveTop,
		ScreenReserveBottom: screen.ReserveBottom,
		ScreenReserveLeft:   screen.ReserveLeft,
		ScreenReserveRight:  screen.ReserveRight,
		Direction:           direction,
	}
}

// parseFontMetrics extracts cell pixel size from fixed-font names like
// "6x13" or "8x16". Anything else falls back to 6x13.
func parseFontMetrics(font string) (uint32, uint32) {
	wText, hText, found := strings.Cut(strings.TrimSpace(font), "x")
	if found {
		w, errW := strconv.ParseUint(wText, 10, 32)
		h, errH := strconv.ParseUint(hText, 10, 32)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return uint32(w), uint32(h)
		}
	}
	return 6, 13
}
