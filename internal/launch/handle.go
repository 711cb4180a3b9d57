package launch

import (
	"context"
	"io"
	"sync"
	"time"
)

// State is one step of a launch's lifecycle.
type State string

// Launch states. A launch moves NotStarted -> Running -> Exited or Killed
// and never backwards.
const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateExited     State = "exited"
	StateKilled     State = "killed"
)

// processHandle is the slice of a running process the supervisor needs.
// Tests inject fakes here, so cancellation and timeout logic run without
// spawning real processes.
type processHandle interface {
	// PID returns the process id.
	PID() int
	// Terminate asks the process to shut down gracefully.
	Terminate() error
	// Kill stops the process immediately.
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	// A non-zero code is not an error at this layer.
	Wait() (int, error)
}

// Handle supervises one launched game process without owning the caller's
// time: state and exit code are poll-able, Done is select-able, and Stop
// escalates from a graceful signal to a kill after the grace period.
type Handle struct {
	mu       sync.Mutex
	state    State
	exitCode int
	waitErr  error
	killed   bool

	proc processHandle
	done chan struct{}
}

// supervise wraps a started process in a handle and begins collecting its
// exit in the background. Closers (the log file) close after exit, so late
// child output is never lost.
func supervise(proc processHandle, closers ...io.Closer) *Handle {
	h := &Handle{
		state: StateRunning,
		proc:  proc,
		done:  make(chan struct{}),
	}

	go func() {
		code, err := proc.Wait()

		h.mu.Lock()

		h.exitCode = code
		h.waitErr = err

		if h.killed {
			h.state = StateKilled
		} else {
			h.state = StateExited
		}

		h.mu.Unlock()

		for _, c := range closers {
			_ = c.Close()
		}

		close(h.done)
	}()

	return h
}

// State returns the launch's current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// PID returns the game process id.
func (h *Handle) PID() int {
	return h.proc.PID()
}

// Done returns a channel closed when the process has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the exit code and whether the process has exited yet.
func (h *Handle) ExitCode() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateExited && h.state != StateKilled {
		return 0, false
	}

	return h.exitCode, true
}

// Wait blocks until the process exits or the context is cancelled.
// A natural non-zero exit comes back as a GameExitError; an exit the caller
// asked for through Stop is not an error at all.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.waitErr != nil {
		return h.waitErr
	}

	if h.state == StateExited && h.exitCode != 0 {
		return &GameExitError{Code: h.exitCode}
	}

	return nil
}

// Stop asks the process to terminate and waits up to grace before killing
// it. Stopping an already-exited process is a no-op.
func (h *Handle) Stop(grace time.Duration) error {
	h.mu.Lock()

	if h.state != StateRunning {
		h.mu.Unlock()

		return nil
	}

	h.killed = true

	h.mu.Unlock()

	if err := h.proc.Terminate(); err != nil {
		// No way to ask nicely; go straight to the kill.
		return h.finishKill()
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(grace):
		return h.finishKill()
	}
}

func (h *Handle) finishKill() error {
	if err := h.proc.Kill(); err != nil {
		h.mu.Lock()
		alive := h.state == StateRunning
		h.mu.Unlock()

		if alive {
			return err
		}
	}

	<-h.done

	return nil
}
