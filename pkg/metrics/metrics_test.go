package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()

	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	t.Cleanup(m.Shutdown)

	return m
}

// drain blocks until the metrics channel has been fully processed or the
// deadline passes, since HandleUpdate runs on its own goroutine.
func drain(t *testing.T, m *Metrics) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for !m.QueueIsEmpty() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for metrics queue to drain")
		}

		time.Sleep(time.Millisecond)
	}
	// Give the goroutine a moment to finish applying the last dequeued event.
	time.Sleep(10 * time.Millisecond)
}

func TestRegisterLaunchSetsRunningAndIncrementsCounter(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)

	m.RegisterLaunch("telemetry")
	drain(t, m)

	require.InDelta(t, 1.0, testutil.ToFloat64(m.launches.WithLabelValues("telemetry")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(m.running.WithLabelValues("telemetry")), 0)
}

func TestRegisterExitClearsRunning(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)

	m.RegisterLaunch("telemetry")
	m.RegisterExit("telemetry")
	drain(t, m)

	require.InDelta(t, 0.0, testutil.ToFloat64(m.running.WithLabelValues("telemetry")), 0)
}

func TestRegisterRestartIncrementsCounter(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)

	m.RegisterRestart("telemetry")
	drain(t, m)

	require.InDelta(t, 1.0, testutil.ToFloat64(m.restarts.WithLabelValues("telemetry")), 0)
}

func TestRegisterCatastrophicIncrementsCounter(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)

	m.RegisterCatastrophic()
	drain(t, m)

	require.InDelta(t, 1.0, testutil.ToFloat64(m.catastrophic), 0)
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)

	m.Shutdown()
	m.Shutdown()
}

func TestRegisterDropsWhenChannelFull(t *testing.T) {
	t.Parallel()

	m, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	defer m.Shutdown()

	// Stop the processing goroutine so the channel backs up, then flood it.
	m.Shutdown()

	for range cap(m.channel) + 5 {
		m.RegisterLaunch("flood")
	}

	require.InDelta(t, 5.0, testutil.ToFloat64(m.dropped), 0)
}
