// Package recovery implements Mercury's Recovery Engine: a state machine,
// parameterized by a process graph, that drives initial launch, reacts to
// process exit and liveness events, orchestrates staged stop-then-relaunch of
// affected subgraphs, and on unrecoverable failure shuts the whole fleet down
// in reverse topological order.
package recovery
