//go:build !windows

// Package console runs a comms command under a local pseudo-terminal
// instead of an X terminal window. Output fans out to subscribers so
// the control server can stream it.
package console

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"muster/internal/event"
	"muster/internal/logging"

	"github.com/creack/pty"
)

const readBufferSize = 4096

var ErrClosed = errors.New("console: session closed")

// Session is one command running under a pty.
type Session struct {
	Key string

	cmd    *exec.Cmd
	ptmx   *os.File
	output *event.Bus[[]byte]
	logger *logging.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Start launches command under a fresh pty in its own process group.
func Start(key, command string, logger *logging.Logger) (*Session, error) {
	cmd := exec.Command("sh", "-c", command)

	// pty.Start sets Setsid on the command, which makes the child a
	// session leader and therefore its own process group leader; adding
	// Setpgid alongside it makes fork/exec fail with EPERM because
	// setpgid(2) rejects session leaders.
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	session := &Session{
		Key:    key,
		cmd:    cmd,
		ptmx:   ptmx,
		output: event.NewBus[[]byte](16),
		logger: logger,
		done:   make(chan struct{}),
	}
	go session.readLoop()
	return session, nil
}

func (s *Session) PID() int {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Subscribe returns a channel of output chunks. Each chunk is an owned
// copy; slow subscribers drop chunks rather than stalling the reader.
func (s *Session) Subscribe() (<-chan []byte, func()) {
	if s == nil {
		return nil, func() {}
	}
	return s.output.Subscribe()
}

// Write sends input to the command's terminal.
func (s *Session) Write(data []byte) (int, error) {
	if s == nil {
		return 0, ErrClosed
	}
	select {
	case <-s.done:
		return 0, ErrClosed
	default:
	}
	return s.ptmx.Write(data)
}

func (s *Session) Resize(cols, rows uint16) error {
	if s == nil {
		return ErrClosed
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Done is closed once the command exits and output is drained.
func (s *Session) Done() <-chan struct{} {
	if s == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Close terminates the process group and releases the pty. Safe to
// call more than once and after the command has already exited.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.cmd != nil && s.cmd.Process != nil {
			// Negative pid targets the whole group.
			_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL)
		}
		_ = s.ptmx.Close()
	})
	return nil
}

func (s *Session) readLoop() {
	defer func() {
		if s.cmd != nil {
			// The SIGCHLD reaper may collect the exit status before this
			// Wait runs; Wait then only releases the handle's resources
			// and its error carries no exit information.
			_ = s.cmd.Wait()
		}
		s.output.Close()
		close(s.done)
	}()

	buffer := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			s.output.Publish(chunk)
		}
		if err != nil {
			// EIO is the normal pty read result after the child exits.
			if s.logger != nil && !errors.Is(err, syscall.EIO) && !errors.Is(err, os.ErrClosed) {
				s.logger.Debug("console read ended", map[string]string{
					"session": s.Key,
					"error":   err.Error(),
				})
			}
			return
		}
	}
}
