package graph

import (
	"fmt"
	"os"
	"sort"
	"syscall"

	"github.com/zippylabs/mercury/internal/util"
	"github.com/zippylabs/mercury/pkg/types"
)

// Graph is an in-memory multigraph of managed-process nodes, built from a
// validated SystemDescription. Edges run from a node to every node that
// depends on it (via a shared topic or an explicit dependency declaration),
// so that a node's predecessors in the graph are exactly the processes that
// must be launched before it.
//
// Iteration over nodes always follows insertion (AddNode) order; iteration
// over a node's edges always follows the deterministic order Build()
// constructed them in. Both are load-bearing: the spec requires deterministic
// traversal.
type Graph struct {
	nodes map[string]*Node
	order []string
	built bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode validates a ManagedProcess record and, if it passes, adds a new
// Node to the graph. Validation follows the spec's data model section:
// process_name and executable_path are required; executable_path must exist,
// be a regular file, and be readable+executable by this process; the name
// must not collide with an already-added node; the failure policy must
// resolve (at most one of fail_policy/relaunch_policy/ignore_policy may be
// set).
//
// A resolved-but-defaulted policy (no policy declared at all) is not a fatal
// error: AddNode returns the new node AND a non-nil error wrapping
// types.MissingPolicyWarning, which the caller should log and otherwise
// ignore.
func (g *Graph) AddNode(proc types.ManagedProcess) (*Node, error) {
	proc.ProcessName = util.NormalizeProcessName(proc.ProcessName)

	if proc.ProcessName == "" {
		return nil, MissingRequiredFieldError{ProcessName: proc.ProcessName, Field: "process_name"}
	}

	if proc.ExecutablePath == "" {
		return nil, MissingRequiredFieldError{ProcessName: proc.ProcessName, Field: "executable_path"}
	}

	if _, exists := g.nodes[proc.ProcessName]; exists {
		return nil, DuplicateNameError{ProcessName: proc.ProcessName}
	}

	if err := checkExecutable(proc.ProcessName, proc.ExecutablePath); err != nil {
		return nil, err
	}

	policy, policyErr := types.ResolvePolicy(proc.ProcessName, proc.FailPolicy, proc.RelaunchPolicy, proc.IgnorePolicy)
	if policyErr != nil {
		var warning types.MissingPolicyWarning
		if !asMissingPolicyWarning(policyErr, &warning) {
			return nil, policyErr
		}
	}

	node := newNode(proc, policy)
	g.nodes[proc.ProcessName] = node
	g.order = append(g.order, proc.ProcessName)
	g.built = false

	return node, policyErr
}

// asMissingPolicyWarning reports whether err is a types.MissingPolicyWarning,
// copying it into target when it is.
func asMissingPolicyWarning(err error, target *types.MissingPolicyWarning) bool {
	warning, ok := err.(types.MissingPolicyWarning) //nolint:errorlint // MissingPolicyWarning is never wrapped.
	if !ok {
		return false
	}

	*target = warning

	return true
}

// checkExecutable enforces the spec's existence/regular-file/permission
// checks on executable_path.
func checkExecutable(processName, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ExecutableUnusableError{ProcessName: processName, Path: path, Reason: "does not exist or is not accessible"}
	}

	if info.IsDir() {
		return ExecutableUnusableError{ProcessName: processName, Path: path, Reason: "is not a regular file"}
	}

	if !info.Mode().IsRegular() {
		return ExecutableUnusableError{ProcessName: processName, Path: path, Reason: "is not a regular file"}
	}

	const readAndExecute = 0x4 | 0x1 // R_OK | X_OK

	if err := syscall.Access(path, readAndExecute); err != nil {
		return ExecutableUnusableError{ProcessName: processName, Path: path, Reason: "is not readable and executable by this user"}
	}

	return nil
}

// Node returns the node with the given process name, or nil if none exists.
func (g *Graph) Node(name string) *Node {
	return g.nodes[util.NormalizeProcessName(name)]
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}

	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Build (re)constructs every edge from scratch: topic publish/subscribe
// relations and explicit process dependencies. It is idempotent on a graph
// that has not had AddNode called since the last Build.
//
// It fails with a single GraphBuildError naming every required topic with no
// publisher and every unresolved explicit dependency, rather than returning
// on the first offender.
func (g *Graph) Build() error {
	for _, name := range g.order {
		g.nodes[name].successors = nil
	}

	publishers := make(map[string][]*Node)

	for _, name := range g.order {
		node := g.nodes[name]

		topics := make([]string, 0, len(node.ProvidedTopics))
		for topic := range node.ProvidedTopics {
			topics = append(topics, topic)
		}

		sort.Strings(topics)

		for _, topic := range topics {
			publishers[topic] = append(publishers[topic], node)
		}
	}

	var buildErr GraphBuildError

	for _, name := range g.order {
		subscriber := g.nodes[name]

		for _, topic := range subscriber.RequiredTopics {
			pubs, ok := publishers[topic]
			if !ok || len(pubs) == 0 {
				buildErr.UnpublishedTopics = append(
					buildErr.UnpublishedTopics,
					fmt.Sprintf("%s (required by %s)", topic, subscriber.ProcessName),
				)

				continue
			}

			for _, pub := range pubs {
				pub.successors = append(pub.successors, subscriber)
			}
		}

		for _, depName := range subscriber.AdditionalProcessDependencies {
			dep, ok := g.nodes[util.NormalizeProcessName(depName)]
			if !ok {
				buildErr.UnresolvedDependencies = append(
					buildErr.UnresolvedDependencies,
					fmt.Sprintf("%s (required by %s)", depName, subscriber.ProcessName),
				)

				continue
			}

			dep.successors = append(dep.successors, subscriber)
		}
	}

	if len(buildErr.UnpublishedTopics) > 0 || len(buildErr.UnresolvedDependencies) > 0 {
		return buildErr
	}

	g.built = true

	return nil
}
