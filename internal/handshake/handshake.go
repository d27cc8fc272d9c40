// Package handshake implements the one-shot rendezvous between the
// orchestrator and each spawned helper: a named FIFO the helper writes
// a single "<pid>:<window-id>\n" line into.
//
// Each FIFO lives in its own freshly created mode-0700 directory and is
// itself mode 0600, so only the owner can read, write, or replace it
// before use. That is strictly stronger than the classic sticky-bit
// /tmp arrangement this design descends from.
package handshake

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	ErrMalformed = errors.New("handshake: expected \"<pid>:<window-id>\" line")
	ErrTimeout   = errors.New("handshake: timed out waiting for helper")
)

const fifoName = "rendezvous"

// Channel is a single-use rendezvous FIFO. It is owned by exactly one
// pending session and must be removed exactly once, on whichever path
// consumes it.
type Channel struct {
	dir        string
	path       string
	removeOnce sync.Once
}

// Create makes a fresh FIFO under baseDir (os.TempDir when empty).
func Create(baseDir string) (*Channel, error) {
	dir, err := os.MkdirTemp(baseDir, "muster-*")
	if err != nil {
		return nil, fmt.Errorf("handshake: create channel dir: %w", err)
	}
	path := filepath.Join(dir, fifoName)
	if err := unix.Mkfifo(path, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("handshake: mkfifo %s: %w", path, err)
	}
	return &Channel{dir: dir, path: path}, nil
}

func (c *Channel) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Read blocks for at most timeout waiting for the helper's line, then
// parses it. A timeout of zero blocks indefinitely.
//
// The FIFO is opened read-write so the open itself never blocks on a
// missing writer and the reader never sees a spurious EOF between the
// helper opening and writing.
func (c *Channel) Read(timeout time.Duration) (pid int, wid uint64, err error) {
	if c == nil {
		return 0, 0, errors.New("handshake: nil channel")
	}
	file, err := os.OpenFile(c.path, os.O_RDWR, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("handshake: open %s: %w", c.path, err)
	}
	defer file.Close()

	if timeout > 0 {
		if err := file.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, 0, fmt.Errorf("handshake: set deadline: %w", err)
		}
	}

	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, 0, ErrTimeout
		}
		return 0, 0, fmt.Errorf("handshake: read %s: %w", c.path, err)
	}
	return parseLine(line)
}

// Remove releases the filesystem resources. Safe to call more than
// once; only the first call acts.
func (c *Channel) Remove() {
	if c == nil {
		return
	}
	c.removeOnce.Do(func() {
		_ = os.Remove(c.path)
		_ = os.Remove(c.dir)
	})
}

// Write is the helper side: open the FIFO at path and write the single
// handshake line.
func Write(path string, pid int, wid uint64) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("handshake: open %s for write: %w", path, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d:%d\n", pid, wid); err != nil {
		return fmt.Errorf("handshake: write %s: %w", path, err)
	}
	return nil
}

func parseLine(line string) (int, uint64, error) {
	pidText, widText, found := strings.Cut(strings.TrimRight(line, "\r\n"), ":")
	if !found {
		return 0, 0, ErrMalformed
	}
	pid, err := strconv.ParseUint(pidText, 10, 32)
	if err != nil {
		return 0, 0, ErrMalformed
	}
	wid, err := strconv.ParseUint(widText, 10, 64)
	if err != nil {
		return 0, 0, ErrMalformed
	}
	return int(pid), wid, nil
}
