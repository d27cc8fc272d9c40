// Package spawn launches one terminal+connection process per requested
// host and completes the handshake that ties each session to its
// window.
package spawn

import (
	"errors"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"muster/internal/config"
	"muster/internal/console"
	"muster/internal/display"
	"muster/internal/event"
	"muster/internal/handshake"
	"muster/internal/host"
	"muster/internal/logging"
	"muster/internal/session"
)

var ErrEmptyDescriptor = errors.New("spawn: empty host descriptor")

// Spawner opens batches of sessions. No per-host failure aborts a
// batch: unparseable descriptors, launch failures, exhausted key
// spaces, and failed handshakes each drop only their own host.
type Spawner struct {
	// Settings is the boot-time configuration; SetSettings swaps it
	// after a config reload. Each batch runs on one snapshot.
	Settings config.Settings
	Logger   *logging.Logger
	Events   *event.Bus[event.SessionEvent]

	// Exe is the path of this binary, re-invoked in the helper role.
	Exe string

	// Title prefixes each terminal's window title.
	Title string

	// BaseDir overrides where handshake channels are created (tests).
	BaseDir string

	// Launch starts the composed command and returns its pid.
	// Swappable for tests; nil means launchShell.
	Launch func(command string) (int, error)

	// LaunchConsole starts a helper under a local pty for the console
	// comms method. Swappable for tests; nil means console.Start.
	LaunchConsole func(key, command string) (int, error)

	mu       sync.Mutex
	consoles map[string]*console.Session
}

// SetSettings replaces the configuration used by subsequent batches.
// Batches already in flight keep the snapshot they started with.
func (s *Spawner) SetSettings(settings config.Settings) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Settings = settings
	s.mu.Unlock()
}

func (s *Spawner) currentSettings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Settings
}

// Console returns the pty-backed session for key, if one is running.
func (s *Spawner) Console(key string) (*console.Session, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.consoles[key]
	return sess, ok
}

// OpenBatch spawns a session per descriptor, inserts the survivors
// into the registry, then performs the handshake read for every
// pending session. It reports whether any session became active.
func (s *Spawner) OpenBatch(registry *session.Registry, descriptors []string) bool {
	if s == nil || registry == nil {
		return false
	}

	settings := s.currentSettings()
	for _, descriptor := range descriptors {
		if descriptor == "" {
			continue
		}
		if err := s.openOne(registry, descriptor, settings); err != nil {
			s.Logger.Warn("session not opened", map[string]string{
				"descriptor": descriptor,
				"error":      err.Error(),
			})
		}
	}

	return s.collectHandshakes(registry, settings)
}

func (s *Spawner) openOne(registry *session.Registry, descriptor string, settings config.Settings) error {
	parsed, ok := host.Parse(descriptor)
	if !ok {
		return errors.New("spawn: could not parse host descriptor")
	}

	channel, err := handshake.Create(s.BaseDir)
	if err != nil {
		return err
	}

	key, err := registry.ReserveKey(parsed.Hostname)
	if err != nil {
		channel.Remove()
		return err
	}

	var pid int
	if settings.Comms.Method == "console" {
		command := buildHelperCommand(settings, parsed, key, channel.Path(), s.Exe)
		pid, err = s.launchConsole(key, command)
	} else {
		command := buildTerminalCommand(settings, parsed, key, channel.Path(), s.Exe, s.Title)
		pid, err = s.launch(command)
	}
	if err != nil {
		channel.Remove()
		return err
	}

	registry.Insert(&session.Session{
		Key:        key,
		PID:        pid,
		Active:     false,
		Descriptor: descriptor,
		Hostname:   parsed.Hostname,
		Username:   parsed.Username,
		Pipe:       channel,
	})
	s.Logger.Debug("session spawned", map[string]string{
		"session": key,
		"pid":     strconv.Itoa(pid),
	})
	s.Events.Publish(event.NewSessionEvent(event.SessionOpened, key, map[string]string{
		"hostname": parsed.Hostname,
	}))
	return nil
}

// collectHandshakes reads every pending channel sequentially: one
// bounded line-read per newly spawned session. Sessions whose
// handshake fails are dropped; their channel is removed either way.
func (s *Spawner) collectHandshakes(registry *session.Registry, settings config.Settings) bool {
	timeout := time.Duration(settings.Monitor.HandshakeTimeoutMS) * time.Millisecond
	activated := false
	var failed []string

	for _, sess := range registry.Sessions() {
		if sess.Pipe == nil {
			continue
		}
		pid, wid, err := sess.Pipe.Read(timeout)
		if err == nil {
			err = sess.Window.Resolve(display.WindowID(wid))
		}
		if err != nil {
			s.Logger.Error("handshake failed", map[string]string{
				"session": sess.Key,
				"error":   err.Error(),
			})
			failed = append(failed, sess.Key)
		} else {
			// The handshake pid supersedes the launch pid: the chain
			// execs down to the helper, which is the process actually
			// worth tracking.
			sess.PID = pid
			sess.Active = true
			activated = true
			s.Logger.Info("session active", map[string]string{
				"session": sess.Key,
				"pid":     strconv.Itoa(pid),
				"wid":     strconv.FormatUint(wid, 10),
			})
			s.Events.Publish(event.NewSessionEvent(event.SessionActive, sess.Key, nil))
		}
		sess.Pipe.Remove()
		sess.Pipe = nil
	}

	for _, key := range failed {
		registry.Remove(key)
	}
	return activated
}

func (s *Spawner) launch(command string) (int, error) {
	if s.Launch != nil {
		return s.Launch(command)
	}
	return launchShell(command)
}

func (s *Spawner) launchConsole(key, command string) (int, error) {
	if s.LaunchConsole != nil {
		return s.LaunchConsole(key, command)
	}
	sess, err := console.Start(key, command, s.Logger)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	if s.consoles == nil {
		s.consoles = make(map[string]*console.Session)
	}
	s.consoles[key] = sess
	s.mu.Unlock()

	go func() {
		<-sess.Done()
		s.mu.Lock()
		delete(s.consoles, key)
		s.mu.Unlock()
	}()
	return sess.PID(), nil
}

// launchShell starts the command under "sh -c" and releases the
// process handle: the SIGCHLD reaper owns child exit collection, so
// holding a waitable handle here would race it.
func launchShell(command string) (int, error) {
	cmd := exec.Command("sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
