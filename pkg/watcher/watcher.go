package watcher

import (
	"os/exec"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Watcher owns a single child process's lifecycle. It is created once per
// graph node and reused across restart cycles via Reset, composing a plain
// *exec.Cmd handle rather than extending any platform callback type, per the
// spec's design note preferring composition over inheritance here.
type Watcher struct {
	name string

	mu            sync.Mutex
	cmd           *exec.Cmd
	exited        bool
	exitCode      int
	eventsEnabled bool
	closing       bool
	onExit        func(code int)

	log *logrus.Entry
}

// New creates a Watcher for the named process. onExit is invoked (with the
// child's exit code) whenever the child exits and events are enabled; it may
// be nil and bound later with Bind, which the Recovery Engine uses once it
// has a stable reference to the owning graph node.
func New(name string, onExit func(code int)) *Watcher {
	return &Watcher{
		name:          name,
		eventsEnabled: true,
		onExit:        onExit,
		log:           logrus.WithField("process", name),
	}
}

// Bind attaches (or replaces) the exit callback. Recovery wires this once,
// after the node's watcher has been created but before the first launch.
func (w *Watcher) Bind(onExit func(code int)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onExit = onExit
}

// OnConnected is called once the child has been spawned.
func (w *Watcher) OnConnected(cmd *exec.Cmd) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.log.Info("process launched")

	w.cmd = cmd
	w.exited = false
	w.closing = false
}

// OnData is a no-op: output is already redirected to a logfile if one was
// configured, and nobody downstream needs the raw bytes.
func (w *Watcher) OnData(_ int, _ []byte) {}

// OnExited is called once the child's exit has been observed. If events are
// currently enabled and a callback is bound, it notifies the callback with
// the captured exit code.
func (w *Watcher) OnExited(code int) {
	w.mu.Lock()
	w.exited = true
	w.exitCode = code
	enabled := w.eventsEnabled
	cb := w.onExit
	w.mu.Unlock()

	w.log.WithField("exit_code", code).Info("process exited")

	if !enabled || cb == nil {
		w.log.Debug("events disabled or no callback bound; suppressing exit notification")

		return
	}

	cb(code)
}

// DisableEvents gates outbound exit notifications until EnableEvents or
// Reset is called.
func (w *Watcher) DisableEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.eventsEnabled = false
}

// EnableEvents re-enables outbound exit notifications.
func (w *Watcher) EnableEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.eventsEnabled = true
}

// RequestStop sends a graceful termination signal (SIGTERM) if the process
// has a handle and has not already exited. A no-op otherwise.
func (w *Watcher) RequestStop() error {
	w.mu.Lock()
	cmd, exited := w.cmd, w.exited
	w.mu.Unlock()

	if cmd == nil || cmd.Process == nil || exited {
		return nil
	}

	w.log.Info("requesting graceful stop")

	return cmd.Process.Signal(syscall.SIGTERM)
}

// ForceStop sends an unconditional kill signal (SIGKILL) if the process has
// a handle and has not already exited, then marks the handle as closing.
// A no-op on a never-launched node.
func (w *Watcher) ForceStop() error {
	w.mu.Lock()
	cmd, exited, closing := w.cmd, w.exited, w.closing
	w.mu.Unlock()

	var killErr error

	if cmd != nil && cmd.Process != nil && !exited {
		w.log.Info("forcefully terminating process")

		killErr = cmd.Process.Kill()
	}

	if cmd != nil && !closing {
		w.mu.Lock()
		w.closing = true
		w.mu.Unlock()
	}

	return killErr
}

// Reset clears the handle and re-enables events, preparing the watcher to be
// reused for the next launch of the same node.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cmd = nil
	w.exited = false
	w.exitCode = 0
	w.eventsEnabled = true
	w.closing = false
}

// HasExited reports whether the current handle (if any) has already exited.
func (w *Watcher) HasExited() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.exited
}
