// Package graph builds and traverses the in-memory dependency graph of a
// system's managed processes: edges are derived from topic publish/subscribe
// relations plus explicit process dependencies, and the package exposes the
// cycle detection, topological sort, and bounded breadth-first traversal the
// Recovery Engine drives its state machine with.
package graph
