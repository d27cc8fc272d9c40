// Package monitor reconciles OS process state against the session
// registry. The periodic pass here is the sole authority that removes
// sessions; the SIGCHLD reaper only drains zombies.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"muster/internal/display"
	"muster/internal/event"
	"muster/internal/logging"
	"muster/internal/session"
)

type commandKind int

const (
	cmdAddHosts commandKind = iota
	cmdSetActive
	cmdCloseInactive
	cmdReopenClosed
	cmdRetile
	cmdQuery
)

// Command is a queued cross-cutting request. Commands are drained and
// dispatched by the reconciliation pass, so they never run concurrently
// with it.
type Command struct {
	kind   commandKind
	hosts  []string
	key    string
	active bool
	reply  chan []session.Info
}

func AddHosts(hosts []string) Command   { return Command{kind: cmdAddHosts, hosts: hosts} }
func SetActive(key string, active bool) Command {
	return Command{kind: cmdSetActive, key: key, active: active}
}
func CloseInactive() Command { return Command{kind: cmdCloseInactive} }
func ReopenClosed() Command  { return Command{kind: cmdReopenClosed} }
func Retile() Command        { return Command{kind: cmdRetile} }

// Spawner is what the monitor needs from the spawn layer.
type Spawner interface {
	OpenBatch(registry *session.Registry, descriptors []string) bool
}

type Options struct {
	Registry *session.Registry
	Logger   *logging.Logger
	Events   *event.Bus[event.SessionEvent]
	Display  display.Display
	Spawner  Spawner

	// Interval between reconciliation passes.
	Interval time.Duration

	// AutoQuit ends the program once the registry empties, provided at
	// least one session was ever active this run.
	AutoQuit bool

	// RequestRetile asks for a fresh layout; raise lifts windows too.
	RequestRetile func(raise bool)

	// RequestQuit signals program termination.
	RequestQuit func()
}

type Monitor struct {
	registry *session.Registry
	logger   *logging.Logger
	events   *event.Bus[event.SessionEvent]
	display  display.Display
	spawner  Spawner

	interval      time.Duration
	autoQuit      bool
	requestRetile func(raise bool)
	requestQuit   func()

	commands   chan Command
	everActive bool

	// alive is swappable for tests.
	alive func(pid int) bool
	// kill is swappable for tests.
	kill func(pid int)
}

func New(opts Options) *Monitor {
	interval := opts.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	retile := opts.RequestRetile
	if retile == nil {
		retile = func(bool) {}
	}
	quit := opts.RequestQuit
	if quit == nil {
		quit = func() {}
	}
	return &Monitor{
		registry:      opts.Registry,
		logger:        opts.Logger,
		events:        opts.Events,
		display:       opts.Display,
		spawner:       opts.Spawner,
		interval:      interval,
		autoQuit:      opts.AutoQuit,
		requestRetile: retile,
		requestQuit:   quit,
		commands:      make(chan Command, 64),
		alive:         processAlive,
		kill:          terminate,
	}
}

// Enqueue queues a command for the next reconciliation pass. A full
// queue drops the command rather than blocking the caller.
func (m *Monitor) Enqueue(cmd Command) bool {
	if m == nil {
		return false
	}
	select {
	case m.commands <- cmd:
		return true
	default:
		m.logger.Warn("command queue full, dropping request", nil)
		return false
	}
}

// Sessions asks the loop for a registry snapshot. The answer arrives
// with the next reconciliation tick, so callers should budget at least
// one interval of latency.
func (m *Monitor) Sessions(ctx context.Context) ([]session.Info, error) {
	reply := make(chan []session.Info, 1)
	if !m.Enqueue(Command{kind: cmdQuery, reply: reply}) {
		return nil, errors.New("monitor: command queue full")
	}
	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Monitor) RequestAddHosts(hosts []string) bool { return m.Enqueue(AddHosts(hosts)) }

func (m *Monitor) RequestSetActive(key string, active bool) bool {
	return m.Enqueue(SetActive(key, active))
}

func (m *Monitor) RequestCloseInactive() bool { return m.Enqueue(CloseInactive()) }

func (m *Monitor) RequestReopenClosed() bool { return m.Enqueue(ReopenClosed()) }

func (m *Monitor) RequestRetile() bool { return m.Enqueue(Retile()) }

// NoteActivated records that at least one session became active, which
// arms the auto-quit policy.
func (m *Monitor) NoteActivated() {
	if m != nil {
		m.everActive = true
	}
}

// Run drives the cooperative loop until ctx is cancelled: drain queued
// commands, then reconcile, every interval.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.drainCommands()
			m.reconcile()
		}
	}
}

func (m *Monitor) drainCommands() {
	for {
		select {
		case cmd := <-m.commands:
			m.dispatch(cmd)
		default:
			return
		}
	}
}

func (m *Monitor) dispatch(cmd Command) {
	switch cmd.kind {
	case cmdAddHosts:
		if m.spawner.OpenBatch(m.registry, cmd.hosts) {
			m.everActive = true
		}
		m.requestRetile(false)
	case cmdSetActive:
		if sess, ok := m.registry.Get(cmd.key); ok {
			sess.Active = cmd.active
		}
	case cmdCloseInactive:
		// Kill only; the reconciliation pass below observes the exits
		// and performs the single authoritative removal.
		for _, sess := range m.registry.Sessions() {
			if !sess.Active {
				m.kill(sess.PID)
			}
		}
	case cmdReopenClosed:
		closed := m.registry.DrainClosed()
		if len(closed) == 0 {
			return
		}
		// Old suffixes have been freed; let numbering restart cleanly.
		m.registry.ClearBumpNums()
		if m.spawner.OpenBatch(m.registry, closed) {
			m.everActive = true
		}
		m.requestRetile(false)
	case cmdRetile:
		m.requestRetile(true)
	case cmdQuery:
		if cmd.reply != nil {
			cmd.reply <- m.registry.Snapshot()
		}
	}
}

// reconcile is the single authoritative pass that detects dead
// sessions and mutates the registry.
func (m *Monitor) reconcile() {
	var dead []string
	for _, sess := range m.registry.Sessions() {
		if sess.PID <= 0 || !m.alive(sess.PID) {
			dead = append(dead, sess.Key)
		}
	}

	for _, key := range dead {
		sess := m.registry.Remove(key)
		if sess == nil {
			continue
		}
		m.kill(sess.PID)
		if wid, ok := sess.Window.ID(); ok && m.display != nil {
			m.display.Unmap(wid)
			m.display.Flush()
		}
		if sess.Pipe != nil {
			sess.Pipe.Remove()
			sess.Pipe = nil
		}
		m.registry.RecordClosed(sess.Descriptor)
		m.logger.Info("session closed", map[string]string{
			"session": key,
			"pid":     strconv.Itoa(sess.PID),
		})
		m.events.Publish(event.NewSessionEvent(event.SessionClosed, key, nil))
	}

	if len(dead) > 0 {
		m.requestRetile(false)
	}

	if m.registry.Len() == 0 && m.autoQuit && m.everActive {
		m.logger.Info("no sessions remain, quitting", nil)
		m.requestQuit()
	}
}
