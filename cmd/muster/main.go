// Command muster opens a terminal session per requested host, keeps the
// fleet tiled on screen, and exposes a small HTTP control surface.
//
// The binary has two roles. The default role orchestrates: it spawns
// terminals, monitors them, and serves the API. Invoked as
// "muster --helper ...", it runs inside each spawned terminal instead:
// it reports its pid and window over the rendezvous FIFO and execs the
// remote connection.
package main

import (
	"flag"
	"fmt"
	"os"

	"muster/internal/config"
	"muster/internal/logging"
	"muster/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--helper" {
		os.Exit(runHelper(os.Args[2:]))
	}

	configPath := flag.String("config", config.DefaultPath(), "config file path")
	port := flag.Int("port", -1, "control server port (overrides config, 0 disables)")
	logLevel := flag.String("log-level", "", "debug, info, warning, or error")
	title := flag.String("title", "muster", "window title prefix")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("muster %s\n", version.Get().Version)
		return
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "muster: %v\n", err)
		os.Exit(1)
	}
	if *port >= 0 {
		settings.Server.Port = *port
	}
	if *logLevel != "" {
		settings.Log.Level = *logLevel
	}

	level, ok := logging.ParseLevel(settings.Log.Level)
	if !ok {
		level = logging.LevelInfo
	}
	logger := logging.NewLogger(level)

	app := newApp(settings, *configPath, *title, logger)
	os.Exit(app.run(flag.Args()))
}
