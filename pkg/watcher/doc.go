// Package watcher owns the OS-level handle to a single managed process and
// translates its exit into an event the Recovery Engine can react to. It
// also implements the graceful-then-forceful stop sequence and the event
// masking a subgraph stop/restart needs.
package watcher
