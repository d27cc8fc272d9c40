package monitor

import (
	"testing"

	"muster/internal/display"
	"muster/internal/event"
	"muster/internal/logging"
	"muster/internal/session"
)

type fakeSpawner struct {
	batches  [][]string
	activate bool
	open     func(registry *session.Registry, descriptors []string)
}

func (f *fakeSpawner) OpenBatch(registry *session.Registry, descriptors []string) bool {
	f.batches = append(f.batches, descriptors)
	if f.open != nil {
		f.open(registry, descriptors)
	}
	return f.activate
}

type nullDisplay struct {
	unmapped []display.WindowID
}

func (d *nullDisplay) Size() (uint32, uint32)     { return 1024, 768 }
func (d *nullDisplay) Map(display.WindowID)       {}
func (d *nullDisplay) Unmap(wid display.WindowID) { d.unmapped = append(d.unmapped, wid) }
func (d *nullDisplay) Raise(display.WindowID)     {}
func (d *nullDisplay) Flush()                     {}
func (d *nullDisplay) ResizeMove(display.WindowID, uint32, uint32, uint32, uint32) error {
	return nil
}

type harness struct {
	monitor  *Monitor
	registry *session.Registry
	spawner  *fakeSpawner
	screen   *nullDisplay
	alive    map[int]bool
	killed   []int
	retiles  int
	quits    int
}

func newHarness(t *testing.T, autoQuit bool) *harness {
	t.Helper()
	h := &harness{
		registry: session.NewRegistry(),
		spawner:  &fakeSpawner{},
		screen:   &nullDisplay{},
		alive:    make(map[int]bool),
	}
	h.monitor = New(Options{
		Registry:      h.registry,
		Logger:        logging.NewLoggerWithOutput(logging.LevelError, nil),
		Events:        event.NewBus[event.SessionEvent](16),
		Display:       h.screen,
		Spawner:       h.spawner,
		AutoQuit:      autoQuit,
		RequestRetile: func(bool) { h.retiles++ },
		RequestQuit:   func() { h.quits++ },
	})
	h.monitor.alive = func(pid int) bool { return h.alive[pid] }
	h.monitor.kill = func(pid int) { h.killed = append(h.killed, pid) }
	return h
}

func (h *harness) addSession(key string, pid int, active bool) *session.Session {
	sess := &session.Session{
		Key:        key,
		PID:        pid,
		Active:     active,
		Descriptor: "descriptor-" + key,
		Window:     session.ResolvedWindow(display.WindowID(pid)),
	}
	h.registry.Insert(sess)
	h.alive[pid] = true
	return sess
}

func TestReconcileRemovesDeadSessionOnce(t *testing.T) {
	h := newHarness(t, false)
	h.addSession("web01", 100, true)
	h.addSession("web02", 200, true)

	h.alive[100] = false
	h.monitor.reconcile()

	if h.registry.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", h.registry.Len())
	}
	if h.registry.ClosedCount() != 1 {
		t.Fatalf("expected 1 closed descriptor, got %d", h.registry.ClosedCount())
	}
	if len(h.screen.unmapped) != 1 || h.screen.unmapped[0] != 100 {
		t.Fatalf("expected window 100 unmapped, got %v", h.screen.unmapped)
	}
	if h.retiles != 1 {
		t.Fatalf("expected 1 retile request, got %d", h.retiles)
	}

	// A second pass with no state change is a no-op.
	h.monitor.reconcile()
	if h.registry.Len() != 1 || h.registry.ClosedCount() != 1 || h.retiles != 1 {
		t.Fatalf("second pass not idempotent: len=%d closed=%d retiles=%d",
			h.registry.Len(), h.registry.ClosedCount(), h.retiles)
	}
}

func TestReconcileRemovesSessionsWithoutPID(t *testing.T) {
	h := newHarness(t, false)
	h.registry.Insert(&session.Session{Key: "broken", PID: 0, Descriptor: "broken-host"})

	h.monitor.reconcile()
	if h.registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", h.registry.Len())
	}
	drained := h.registry.DrainClosed()
	if len(drained) != 1 || drained[0] != "broken-host" {
		t.Fatalf("unexpected closed list %v", drained)
	}
}

func TestAutoQuitRequiresPriorActivity(t *testing.T) {
	h := newHarness(t, true)

	// Empty registry, but nothing was ever active: no quit.
	h.monitor.reconcile()
	if h.quits != 0 {
		t.Fatalf("premature quit")
	}

	h.monitor.NoteActivated()
	h.addSession("web01", 100, true)
	h.monitor.reconcile()
	if h.quits != 0 {
		t.Fatalf("quit with live session")
	}

	h.alive[100] = false
	h.monitor.reconcile()
	if h.quits != 1 {
		t.Fatalf("expected quit after last session died, got %d", h.quits)
	}
}

func TestAutoQuitDisabled(t *testing.T) {
	h := newHarness(t, false)
	h.monitor.NoteActivated()
	h.monitor.reconcile()
	if h.quits != 0 {
		t.Fatalf("quit despite disabled policy")
	}
}

func TestSetActiveCommand(t *testing.T) {
	h := newHarness(t, false)
	sess := h.addSession("web01", 100, true)

	h.monitor.Enqueue(SetActive("web01", false))
	h.monitor.drainCommands()
	if sess.Active {
		t.Fatal("expected session deactivated")
	}

	h.monitor.Enqueue(SetActive("web01", true))
	h.monitor.drainCommands()
	if !sess.Active {
		t.Fatal("expected session reactivated")
	}
}

func TestCloseInactiveKillsOnlyInactive(t *testing.T) {
	h := newHarness(t, false)
	h.addSession("web01", 100, true)
	h.addSession("web02", 200, false)
	h.addSession("web03", 300, false)

	h.monitor.Enqueue(CloseInactive())
	h.monitor.drainCommands()

	if len(h.killed) != 2 {
		t.Fatalf("expected 2 kills, got %v", h.killed)
	}
	for _, pid := range h.killed {
		if pid == 100 {
			t.Fatal("active session killed")
		}
	}
	// Removal happens in the following reconciliation, not here.
	if h.registry.Len() != 3 {
		t.Fatalf("expected removal deferred, got %d sessions", h.registry.Len())
	}
}

func TestReopenClosedRenumbersAndSpawns(t *testing.T) {
	h := newHarness(t, false)
	h.spawner.activate = true
	h.registry.RecordClosed("user@web01")
	h.registry.RecordClosed("web02")

	h.monitor.Enqueue(ReopenClosed())
	h.monitor.drainCommands()

	if len(h.spawner.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(h.spawner.batches))
	}
	batch := h.spawner.batches[0]
	if len(batch) != 2 || batch[0] != "user@web01" || batch[1] != "web02" {
		t.Fatalf("unexpected batch %v", batch)
	}
	if h.registry.ClosedCount() != 0 {
		t.Fatal("closed list not drained")
	}
	if !h.monitor.everActive {
		t.Fatal("activation not recorded")
	}
}

func TestReopenClosedWithEmptyListIsNoOp(t *testing.T) {
	h := newHarness(t, false)
	h.monitor.Enqueue(ReopenClosed())
	h.monitor.drainCommands()
	if len(h.spawner.batches) != 0 {
		t.Fatalf("unexpected spawn %v", h.spawner.batches)
	}
}

func TestAddHostsCommand(t *testing.T) {
	h := newHarness(t, false)
	h.monitor.Enqueue(AddHosts([]string{"web09"}))
	h.monitor.drainCommands()
	if len(h.spawner.batches) != 1 || h.spawner.batches[0][0] != "web09" {
		t.Fatalf("unexpected batches %v", h.spawner.batches)
	}
	if h.retiles != 1 {
		t.Fatalf("expected retile after add, got %d", h.retiles)
	}
}

func TestQueryCommandRepliesWithSnapshot(t *testing.T) {
	h := newHarness(t, false)
	h.addSession("web01", 100, true)

	reply := make(chan []session.Info, 1)
	if !h.monitor.Enqueue(Command{kind: cmdQuery, reply: reply}) {
		t.Fatal("enqueue failed")
	}
	h.monitor.drainCommands()

	snapshot := <-reply
	if len(snapshot) != 1 || snapshot[0].Key != "web01" || !snapshot[0].Active {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	h := newHarness(t, false)
	for i := 0; i < 64; i++ {
		if !h.monitor.Enqueue(Retile()) {
			t.Fatalf("queue filled early at %d", i)
		}
	}
	if h.monitor.Enqueue(Retile()) {
		t.Fatal("expected drop on full queue")
	}
}
