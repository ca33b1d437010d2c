// ABOUTME: Spawns the external agent CLI and exposes each run as an ordered event stream
// ABOUTME: One OS process per run, stdin closed, idempotent abort via SIGTERM

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// ErrAgentNotFound indicates the agent executable is not installed or
// not on PATH.
var ErrAgentNotFound = errors.New("agent executable not found")

// ExecError indicates the agent process exited with a non-zero code
// after a run that was not aborted.
type ExecError struct {
	ExitCode int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("agent exited with code %d", e.ExitCode)
}

// Launcher starts agent CLI processes. A single Launcher is shared by
// all conversations; each Start call produces one independent run.
type Launcher struct {
	binary      string
	gracePeriod time.Duration
	logger      *slog.Logger
}

// NewLauncher creates a Launcher for the given executable name.
// gracePeriod bounds how long a terminated process may linger before
// its pipes are forcibly closed.
func NewLauncher(binary string, gracePeriod time.Duration, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	if gracePeriod <= 0 {
		gracePeriod = 5 * time.Second
	}
	return &Launcher{
		binary:      binary,
		gracePeriod: gracePeriod,
		logger:      logger.With("component", "launcher"),
	}
}

// Start spawns one agent process for the given prompt. The resume token
// is passed only when non-empty. The returned Handle streams events
// until the process exits; an aborted run closes the stream without a
// terminal event.
func (l *Launcher) Start(ctx context.Context, prompt, resumeToken string) (Handle, error) {
	if _, err := exec.LookPath(l.binary); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, l.binary)
	}

	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if resumeToken != "" {
		args = append(args, "--resume", resumeToken)
	}

	cmd := exec.CommandContext(ctx, l.binary, args...)
	cmd.Stdin = nil // no interactive input
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = l.gracePeriod

	r := &run{
		events: make(chan Event, 64),
		cmd:    cmd,
		parser: newStreamParser(l.logger),
		logger: l.logger,
	}
	cmd.Stdout = (*stdoutFeeder)(r)
	cmd.Stderr = &stderrLogger{logger: l.logger}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, l.binary)
		}
		return nil, fmt.Errorf("starting agent process: %w", err)
	}

	l.logger.Info("agent process spawned",
		"pid", cmd.Process.Pid,
		"resuming", resumeToken != "",
	)

	go r.wait(ctx)

	return r, nil
}

// run is one live agent process plus its parsing pipeline.
type run struct {
	events chan Event
	cmd    *exec.Cmd
	parser *streamParser

	abortOnce sync.Once
	aborted   atomic.Bool

	// feedMu serializes the stdout feeder against channel close: wait()
	// takes it before closing events, so a feeder mid-emit always
	// finishes its send first and later writes see closed and discard.
	feedMu sync.Mutex
	closed bool

	// feedErr is set by the stdout feeder before killing the process;
	// both fields are guarded by feedMu.
	feedErr error

	logger *slog.Logger
}

// Events returns the run's event stream.
func (r *run) Events() <-chan Event {
	return r.events
}

// Abort sends SIGTERM to the process exactly once. Further calls, and
// calls after the process already exited, are no-ops.
func (r *run) Abort() {
	r.abortOnce.Do(func() {
		r.aborted.Store(true)
		if r.cmd.Process != nil {
			if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
				r.logger.Debug("signal to agent process failed", "error", err)
			}
			r.logger.Info("agent run aborted", "pid", r.cmd.Process.Pid)
		}
	})
}

// emit delivers one event unless the run was aborted.
func (r *run) emit(ev Event) {
	if r.aborted.Load() {
		return
	}
	r.events <- ev
}

// closeEvents closes the event channel once the stdout feeder is out of
// Write. Without the gate a WaitDelay expiry could close the channel
// under a feeder still blocked on a send.
func (r *run) closeEvents() {
	r.feedMu.Lock()
	r.closed = true
	r.feedMu.Unlock()
	close(r.events)
}

// wait blocks on process exit and emits the terminal event. Abort and
// context cancellation suppress the terminal event entirely.
func (r *run) wait(ctx context.Context) {
	defer r.closeEvents()

	waitErr := r.cmd.Wait()

	r.feedMu.Lock()
	feedErr := r.feedErr
	r.feedMu.Unlock()

	if r.aborted.Load() || ctx.Err() != nil {
		r.logger.Info("agent run ended after abort, suppressing outcome")
		return
	}

	if feedErr != nil {
		r.events <- Event{Type: EventErrored, Err: feedErr}
		return
	}

	if waitErr == nil {
		r.logger.Info("agent run completed",
			"content_bytes", len(r.parser.FullContent()),
			"has_session_id", r.parser.SessionID() != "",
		)
		r.events <- Event{
			Type:        EventCompleted,
			FullContent: r.parser.FullContent(),
			SessionID:   r.parser.SessionID(),
		}
		return
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		r.events <- Event{Type: EventErrored, Err: &ExecError{ExitCode: exitErr.ExitCode()}}
		return
	}
	r.events <- Event{Type: EventErrored, Err: fmt.Errorf("agent process: %w", waitErr)}
}

// stdoutFeeder adapts the run's parser to the io.Writer the process
// copies stdout into. A parser failure (line buffer overflow) kills the
// process; subsequent output is discarded so the pipe keeps draining.
type stdoutFeeder run

func (f *stdoutFeeder) Write(p []byte) (int, error) {
	r := (*run)(f)
	r.feedMu.Lock()
	defer r.feedMu.Unlock()
	if r.closed || r.feedErr != nil || r.aborted.Load() {
		return len(p), nil
	}
	if err := r.parser.Feed(p, r.emit); err != nil {
		r.feedErr = err
		r.logger.Error("killing agent process", "error", err)
		_ = r.cmd.Process.Kill()
	}
	return len(p), nil
}

// stderrLogger logs agent stderr; the agent uses it for progress noise,
// not protocol data.
type stderrLogger struct {
	logger *slog.Logger
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	w.logger.Warn("agent stderr", "output", preview(p, 300))
	return len(p), nil
}
