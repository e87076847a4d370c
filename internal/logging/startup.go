// Package logging writes Mercury's startup banner: what it is about to
// supervise and how, before the Recovery Engine's event loop takes over.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zippylabs/mercury/internal/notify"
	"github.com/zippylabs/mercury/pkg/types"
)

// WriteStartupMessage logs an overview of the system about to be
// supervised: process count, notification setup, and whether the metrics
// endpoint and watchdog sweep are enabled.
//
// Parameters:
//   - sys: The system description being supervised.
//   - metricsAddr: The configured metrics listen address, empty if disabled.
//   - watchdogCron: The configured watchdog cron expression, empty if disabled.
//   - notifier: The notifier used for catastrophic-shutdown alerts, nil if none.
func WriteStartupMessage(sys types.SystemDescription, metricsAddr, watchdogCron string, notifier *notify.Notifier) {
	log := logrus.NewEntry(logrus.StandardLogger())

	names := make([]string, 0, len(sys.Processes))
	for _, p := range sys.Processes {
		names = append(names, p.ProcessName)
	}

	log.Infof("Mercury supervising %d process(es): %s", len(sys.Processes), strings.Join(names, ", "))

	LogNotifierInfo(log, notifier)

	if metricsAddr != "" {
		log.Infof("Metrics endpoint enabled at %s", metricsAddr)
	} else {
		log.Debug("Metrics endpoint disabled")
	}

	if watchdogCron != "" {
		log.Infof("Liveness watchdog scheduled on %q", watchdogCron)
	} else {
		log.Debug("Liveness watchdog disabled")
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.Warn("Trace-level logging enabled")
	}
}

// LogNotifierInfo logs whether catastrophic-shutdown notifications are wired up.
func LogNotifierInfo(log *logrus.Entry, notifier *notify.Notifier) {
	if notifier == nil || !notifier.Configured() {
		log.Info("Using no notifications")

		return
	}

	log.Info("Using catastrophic-shutdown notifications")
}
