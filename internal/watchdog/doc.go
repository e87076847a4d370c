// Package watchdog periodically sweeps the process graph for nodes that have
// stopped responding to liveness checks, and feeds the Recovery Engine a
// LIVENESS_FAILED event for each one it catches — the extension point the
// spec's data model reserves per-policy watchdog timing for, scheduled here
// with a single cron expression in the teacher's robfig/cron idiom.
package watchdog
