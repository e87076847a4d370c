// Package metrics tracks and exposes Prometheus metrics for Mercury's
// supervision activity: process launches, restarts, catastrophic shutdowns,
// and each node's current running state.
//
// Usage example:
//
//	m := metrics.Default()
//	m.RegisterLaunch("telemetry")
//	m.RegisterExit("telemetry")
package metrics
