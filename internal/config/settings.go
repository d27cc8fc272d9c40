package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings mirrors the config file. Zero values are filled in from
// Defaults by Load, so a partial file is always usable.
type Settings struct {
	Terminal TerminalSettings `yaml:"terminal"`
	Screen   ScreenSettings   `yaml:"screen"`
	Tiling   TilingSettings   `yaml:"tiling"`
	Comms    CommsSettings    `yaml:"comms"`
	Monitor  MonitorSettings  `yaml:"monitor"`
	Server   ServerSettings   `yaml:"server"`
	Log      LogSettings      `yaml:"log"`
}

type TerminalSettings struct {
	Name             string `yaml:"name"`
	Args             string `yaml:"args"`
	AllowSendEvents  string `yaml:"allow_send_events"`
	TitleOpt         string `yaml:"title_opt"`
	Font             string `yaml:"font"`
	Columns          uint32 `yaml:"columns"`
	Rows             uint32 `yaml:"rows"`
	DecorationWidth  uint32 `yaml:"decoration_width"`
	DecorationHeight uint32 `yaml:"decoration_height"`
	ReserveTop       uint32 `yaml:"reserve_top"`
	ReserveBottom    uint32 `yaml:"reserve_bottom"`
	ReserveLeft      uint32 `yaml:"reserve_left"`
	ReserveRight     uint32 `yaml:"reserve_right"`
	Colorize         *bool  `yaml:"colorize"`
	DarkBackground   *bool  `yaml:"dark_background"`
}

type ScreenSettings struct {
	ReserveTop    uint32 `yaml:"reserve_top"`
	ReserveBottom uint32 `yaml:"reserve_bottom"`
	ReserveLeft   uint32 `yaml:"reserve_left"`
	ReserveRight  uint32 `yaml:"reserve_right"`
}

type TilingSettings struct {
	Enabled       *bool  `yaml:"enabled"`
	Direction     string `yaml:"direction"` // "right" or "left"
	UnmapOnRedraw bool   `yaml:"unmap_on_redraw"`
	DelayMS       uint32 `yaml:"delay_ms"` // per-placement wait for slow WMs, 0 disables
}

type CommsSettings struct {
	Method    string `yaml:"method"` // ssh, rsh, telnet, sftp, console
	Args      string `yaml:"args"`
	Command   string `yaml:"command"`    // remote command run in every session
	AutoClose string `yaml:"auto_close"` // "" or "0" waits for RETURN, else sleep seconds
	Port      string `yaml:"port"`
	Username  string `yaml:"username"`
}

type MonitorSettings struct {
	IntervalMS         uint32 `yaml:"interval_ms"`
	HandshakeTimeoutMS uint32 `yaml:"handshake_timeout_ms"`
	AutoQuit           *bool  `yaml:"auto_quit"`
}

type ServerSettings struct {
	Port      int    `yaml:"port"` // 0 disables the control server
	AuthToken string `yaml:"auth_token"`
}

type LogSettings struct {
	Level string `yaml:"level"`
}

func Defaults() Settings {
	on := true
	return Settings{
		Terminal: TerminalSettings{
			Name:             "xterm",
			AllowSendEvents:  "-xrm '*.VT100.allowSendEvents:true'",
			TitleOpt:         "-T",
			Font:             "6x13",
			Columns:          80,
			Rows:             24,
			DecorationWidth:  8,
			DecorationHeight: 10,
			ReserveTop:       5,
			ReserveBottom:    0,
			ReserveLeft:      5,
			ReserveRight:     0,
			Colorize:         &on,
			DarkBackground:   &on,
		},
		Screen: ScreenSettings{
			ReserveTop:    0,
			ReserveBottom: 60,
			ReserveLeft:   0,
			ReserveRight:  0,
		},
		Tiling: TilingSettings{
			Enabled:       &on,
			Direction:     "right",
			UnmapOnRedraw: false,
			DelayMS:       0,
		},
		Comms: CommsSettings{
			Method:    "ssh",
			AutoClose: "5",
		},
		Monitor: MonitorSettings{
			IntervalMS:         500,
			HandshakeTimeoutMS: 30000,
			AutoQuit:           &on,
		},
		Server: ServerSettings{
			Port: 0,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// Load reads the config file at path (missing file is not an error),
// overlays it on the defaults, applies MUSTER_* env overrides, and
// normalizes the result.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if strings.TrimSpace(path) != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Settings{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else {
			if err := yaml.Unmarshal(payload, &settings); err != nil {
				return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&settings)
	return normalize(settings), nil
}

func applyEnvOverrides(settings *Settings) {
	if raw := os.Getenv("MUSTER_TERMINAL"); raw != "" {
		settings.Terminal.Name = raw
	}
	if raw := os.Getenv("MUSTER_COMMS"); raw != "" {
		settings.Comms.Method = raw
	}
	if raw := os.Getenv("MUSTER_PORT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			settings.Server.Port = parsed
		}
	}
	if raw := os.Getenv("MUSTER_AUTH_TOKEN"); raw != "" {
		settings.Server.AuthToken = raw
	}
	if raw := os.Getenv("MUSTER_LOG_LEVEL"); raw != "" {
		settings.Log.Level = raw
	}
}

func normalize(settings Settings) Settings {
	defaults := Defaults()

	if strings.TrimSpace(settings.Terminal.Name) == "" {
		settings.Terminal.Name = defaults.Terminal.Name
	}
	if settings.Terminal.Columns == 0 {
		settings.Terminal.Columns = defaults.Terminal.Columns
	}
	if settings.Terminal.Rows == 0 {
		settings.Terminal.Rows = defaults.Terminal.Rows
	}
	if strings.TrimSpace(settings.Terminal.Font) == "" {
		settings.Terminal.Font = defaults.Terminal.Font
	}
	if settings.Terminal.Colorize == nil {
		settings.Terminal.Colorize = defaults.Terminal.Colorize
	}
	if settings.Terminal.DarkBackground == nil {
		settings.Terminal.DarkBackground = defaults.Terminal.DarkBackground
	}

	switch strings.ToLower(strings.TrimSpace(settings.Tiling.Direction)) {
	case "left":
		settings.Tiling.Direction = "left"
	default:
		settings.Tiling.Direction = "right"
	}
	if settings.Tiling.Enabled == nil {
		settings.Tiling.Enabled = defaults.Tiling.Enabled
	}

	switch strings.ToLower(strings.TrimSpace(settings.Comms.Method)) {
	case "rsh", "telnet", "sftp", "console":
		settings.Comms.Method = strings.ToLower(strings.TrimSpace(settings.Comms.Method))
	default:
		settings.Comms.Method = "ssh"
	}

	if settings.Monitor.IntervalMS == 0 {
		settings.Monitor.IntervalMS = defaults.Monitor.IntervalMS
	}
	if settings.Monitor.HandshakeTimeoutMS == 0 {
		settings.Monitor.HandshakeTimeoutMS = defaults.Monitor.HandshakeTimeoutMS
	}
	if settings.Monitor.AutoQuit == nil {
		settings.Monitor.AutoQuit = defaults.Monitor.AutoQuit
	}

	if _, ok := parseLogLevel(settings.Log.Level); !ok {
		settings.Log.Level = defaults.Log.Level
	}
	return settings
}

func parseLogLevel(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug", "info", "warning", "warn", "error":
		return strings.ToLower(strings.TrimSpace(value)), true
	default:
		return "", false
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.muster/config.yaml"
}
