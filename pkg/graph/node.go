package graph

import (
	"github.com/zippylabs/mercury/pkg/types"
	"github.com/zippylabs/mercury/pkg/watcher"
)

// color is a node's traversal state during DFS/BFS.
type color int

const (
	white color = iota // undiscovered
	gray               // discovered, not yet finished/expanded
	black              // finished (DFS) or fully expanded (BFS)
)

// Node is the runtime counterpart of a types.ManagedProcess: the declarative
// record plus its resolved failure policy, its Process Watcher, and the
// traversal state the graph algorithms mutate in place between runs.
type Node struct {
	types.ManagedProcess

	Policy  types.FailurePolicy
	Watcher *watcher.Watcher

	successors []*Node

	clr            color
	predecessor    *Node
	distance       int
	discoveryTime  int
	finishingTime  int
}

// newNode wraps a validated ManagedProcess with a freshly-created watcher and
// its resolved policy. The watcher's exit callback is bound later, once the
// owning graph (and therefore the Recovery Engine's dispatch target) exists.
func newNode(proc types.ManagedProcess, policy types.FailurePolicy) *Node {
	return &Node{
		ManagedProcess: proc,
		Policy:         policy,
		Watcher:        watcher.New(proc.ProcessName, nil),
		clr:            white,
	}
}

// resetTraversalState returns a node to WHITE with no predecessor, ready for
// a fresh DFS or BFS pass. Each traversal entry point calls it on every node
// before it runs so repeated calls to HasCycle/TopologicalSort/
// BreadthFirstTraversal don't see stale coloring from a prior pass.
func (n *Node) resetTraversalState() {
	n.clr = white
	n.predecessor = nil
	n.distance = 0
	n.discoveryTime = 0
	n.finishingTime = 0
}

// Name returns the node's process name.
func (n *Node) Name() string { return n.ProcessName }

// DiscoveryTime returns the node's discovery time from the most recent
// traversal. The Recovery Engine uses this to compute relaunch wave timing
// after a BreadthFirstTraversal.
func (n *Node) DiscoveryTime() int { return n.discoveryTime }

// FinishingTime returns the node's finishing time from the most recent DFS.
func (n *Node) FinishingTime() int { return n.finishingTime }

// Successors returns the node's outgoing edges in deterministic,
// insertion-derived order.
func (n *Node) Successors() []*Node {
	out := make([]*Node, len(n.successors))
	copy(out, n.successors)

	return out
}
