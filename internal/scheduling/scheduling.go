// Package scheduling manages the event loop's lifecycle: turning SIGINT and
// SIGTERM into context cancellation and waiting, with a bounded timeout, for
// the Recovery Engine to finish its shutdown sequence before the process
// exits.
package scheduling

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// NotifyContext returns a context that is canceled on SIGINT or SIGTERM, in
// place of a bare signal.Notify channel, so the event loop, the metrics
// server, and the watchdog all tear down from the same cancellation.
//
// Returns:
//   - context.Context: Canceled on SIGINT/SIGTERM or when stop is called.
//   - context.CancelFunc: Releases the signal notification; call via defer.
func NotifyContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	logrus.Debug("Listening for SIGINT/SIGTERM to begin shutdown.")

	return ctx, stop
}

// Wait blocks until either ctx is canceled (an external SIGINT/SIGTERM) or
// done is closed (the Recovery Engine reached Catastrophic and finished its
// shutdown sequence), whichever comes first. Once ctx is canceled it still
// gives the engine up to timeout to finish any in-flight shutdown sequence
// before giving up.
//
// Parameters:
//   - ctx: Canceled on an external shutdown request.
//   - done: Closed once the engine has finished a Catastrophic shutdown.
//   - timeout: The longest Wait will keep waiting after ctx is canceled.
//
// Returns:
//   - bool: True if the engine reached Catastrophic, false on a clean
//     external shutdown request.
func Wait(ctx context.Context, done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		logrus.Debug("Recovery engine reached catastrophic shutdown.")

		return true
	case <-ctx.Done():
		logrus.Debug("Shutdown requested, waiting for the event loop to stop.")
	}

	select {
	case <-done:
		logrus.Debug("Recovery engine reached catastrophic shutdown during exit.")

		return true
	case <-time.After(timeout):
		logrus.Debug("Event loop stopped cleanly.")

		return false
	}
}
