package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

// logPermissions is used for launch log files.
const logPermissions os.FileMode = 0o644

// errNoJava is returned for specs without a runtime executable.
var errNoJava = errors.New("spec names no java executable")

// Spec describes one game process invocation.
type Spec struct {
	// JavaBin is the runtime executable to invoke.
	JavaBin string
	// Args is the full argument list: JVM flags, classpath, main class,
	// game arguments.
	Args []string
	// Dir is the working directory. The game directory is always the
	// instance root, never anything shared, so saves and config stay
	// inside the instance.
	Dir string
	// Env is extra environment appended to the parent's.
	Env []string
	// LogPath is the append-only file receiving the child's stdout and
	// stderr.
	LogPath string
}

// Start spawns the game process described by spec and returns a running
// handle. Failure to start at all is an ErrLaunch; whatever the child does
// after starting is its own business, reported through the handle.
func Start(ctx context.Context, spec *Spec) (*Handle, error) {
	if spec.JavaBin == "" {
		return nil, fmt.Errorf("%w: %s", ErrLaunch, errNoJava)
	}

	logFile, err := openLog(spec.LogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLaunch, err)
	}

	//nolint:gosec // The argument list is computed from the verified manifest.
	cmd := exec.Command(spec.JavaBin, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), spec.Env...)

	if err = cmd.Start(); err != nil {
		_ = logFile.Close()

		return nil, fmt.Errorf("%w: %s", ErrLaunch, err)
	}

	logger.InfoKV(ctx, "Game process started",
		"pid", cmd.Process.Pid, "java", spec.JavaBin, "dir", spec.Dir)

	return supervise(&osProcess{cmd: cmd}, logFile), nil
}

// openLog opens the launch log for appending, creating its directory first.
func openLog(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("spec names no log path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, logPermissions)
}

// osProcess adapts a started exec.Cmd to the supervisor's process interface.
type osProcess struct {
	cmd *exec.Cmd
}

// PID returns the child's process id.
func (p *osProcess) PID() int {
	return p.cmd.Process.Pid
}

// Terminate sends the platform's graceful termination signal.
func (p *osProcess) Terminate() error {
	if runtime.GOOS == "windows" {
		// No SIGTERM on Windows; the caller escalates to Kill.
		return errors.New("graceful termination not supported")
	}

	return p.cmd.Process.Signal(syscall.SIGTERM)
}

// Kill stops the child immediately.
func (p *osProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// Wait blocks until the child exits. A non-zero exit code is returned as a
// code, not an error; only failures to observe the process are errors.
func (p *osProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("wait for game process: %w", err)
}
