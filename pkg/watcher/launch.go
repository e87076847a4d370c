package watcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// LaunchSpec is the subset of a managed process's configuration a launch
// needs: the executable, its arguments, its environment, and where to send
// its output.
type LaunchSpec struct {
	ExecutablePath string
	Arguments      []string
	Environment    map[string]string
	LogFile        string
}

// Launch starts the child process described by spec and wires w's
// OnConnected/OnExited lifecycle to it. The returned error is only a launch
// failure (bad executable, fork/exec failure); exit is reported later,
// asynchronously, through w.
func Launch(ctx context.Context, spec LaunchSpec, w *Watcher) error {
	cmd := exec.CommandContext(ctx, spec.ExecutablePath, spec.Arguments...)
	cmd.Env = envSlice(spec.Environment)

	var logFile *os.File

	if spec.LogFile != "" {
		f, err := os.OpenFile(spec.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening logfile %s: %w", spec.LogFile, err)
		}

		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}

		return fmt.Errorf("launching %s: %w", spec.ExecutablePath, err)
	}

	w.OnConnected(cmd)

	go func() {
		waitErr := cmd.Wait()

		if logFile != nil {
			if closeErr := logFile.Close(); closeErr != nil {
				logrus.WithError(closeErr).WithField("logfile", spec.LogFile).Warn("failed to close process logfile")
			}
		}

		w.OnExited(exitCode(cmd, waitErr))
	}()

	return nil
}

// exitCode extracts the process exit code from the result of cmd.Wait().
func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}

	if waitErr != nil {
		return -1
	}

	return 0
}

// envSlice converts an environment mapping into the os/exec "KEY=VALUE"
// slice form, inheriting the Mercury process's own environment as a base.
func envSlice(env map[string]string) []string {
	out := os.Environ()
	for k, v := range env {
		out = append(out, k+"="+v)
	}

	return out
}
