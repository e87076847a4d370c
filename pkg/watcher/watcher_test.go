package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zippylabs/mercury/pkg/watcher"
)

func TestRequestStopBeforeOnConnectedIsNoOp(t *testing.T) {
	t.Parallel()

	w := watcher.New("idle", nil)
	assert.NoError(t, w.RequestStop())
	assert.NoError(t, w.ForceStop())
}

func TestDisableEventsSuppressesNotifications(t *testing.T) {
	t.Parallel()

	var notified int

	w := watcher.New("test", func(int) { notified++ })
	w.DisableEvents()
	w.OnExited(1)
	assert.Equal(t, 0, notified)

	w.EnableEvents()
	w.OnExited(1)
	assert.Equal(t, 1, notified)
}

func TestResetReturnsEnabledEventsWithNoHandle(t *testing.T) {
	t.Parallel()

	var notified int

	w := watcher.New("test", func(int) { notified++ })
	w.DisableEvents()
	w.Reset()

	assert.False(t, w.HasExited())

	w.OnExited(0)
	assert.Equal(t, 1, notified, "reset should re-enable events")
}

func TestLaunchAndExitNotification(t *testing.T) {
	t.Parallel()

	done := make(chan int, 1)
	w := watcher.New("sh", func(code int) { done <- code })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := watcher.Launch(ctx, watcher.LaunchSpec{
		ExecutablePath: "/bin/sh",
		Arguments:      []string{"-c", "exit 7"},
	}, w)
	require.NoError(t, err)

	select {
	case code := <-done:
		assert.Equal(t, 7, code)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for exit notification")
	}

	assert.True(t, w.HasExited())
	// A second stop on an already-exited process must be a no-op, not an error.
	assert.NoError(t, w.RequestStop())
	assert.NoError(t, w.ForceStop())
}

func TestLaunchWritesToLogFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logfile := filepath.Join(dir, "proc.log")

	done := make(chan int, 1)
	w := watcher.New("sh", func(code int) { done <- code })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := watcher.Launch(ctx, watcher.LaunchSpec{
		ExecutablePath: "/bin/sh",
		Arguments:      []string{"-c", "echo hello"},
		LogFile:        logfile,
	}, w)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for exit notification")
	}

	contents, err := os.ReadFile(logfile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "hello")
}
