//go:build !windows

package console

import (
	"bytes"
	"testing"
	"time"
)

func collect(t *testing.T, output <-chan []byte, want string, deadline time.Duration) []byte {
	t.Helper()
	var buffer bytes.Buffer
	timeout := time.After(deadline)
	for {
		if bytes.Contains(buffer.Bytes(), []byte(want)) {
			return buffer.Bytes()
		}
		select {
		case chunk, ok := <-output:
			if !ok {
				return buffer.Bytes()
			}
			buffer.Write(chunk)
		case <-timeout:
			t.Fatalf("timeout waiting for %q, got %q", want, buffer.String())
		}
	}
}

func TestStartStreamsOutput(t *testing.T) {
	session, err := Start("web01", "echo console-ready", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Close()

	output, cancel := session.Subscribe()
	defer cancel()

	got := collect(t, output, "console-ready", 5*time.Second)
	if !bytes.Contains(got, []byte("console-ready")) {
		t.Fatalf("output %q missing marker", got)
	}

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestWriteReachesCommand(t *testing.T) {
	session, err := Start("web01", "cat", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Close()

	output, cancel := session.Subscribe()
	defer cancel()

	if _, err := session.Write([]byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	collect(t, output, "ping", 5*time.Second)
}

func TestCloseTerminatesCommand(t *testing.T) {
	session, err := Start("web01", "sleep 60", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.PID() <= 0 {
		t.Fatalf("pid = %d", session.PID())
	}

	if err := session.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Close again to confirm idempotence.
	if err := session.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session still running after close")
	}

	if _, err := session.Write([]byte("x")); err == nil {
		t.Fatal("write succeeded after close")
	}
}
