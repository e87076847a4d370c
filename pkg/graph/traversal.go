package graph

// stackFrame wraps a node on the DFS stack. A frame is peeked (not popped)
// twice: the color switch in depthFirstTraversal distinguishes
// the WHITE pass (discovery) from the GRAY pass (finish) on the same frame,
// which is what lets the iterative DFS below visit each node twice — once on
// the way down, once on the way back up — without recursion.
type stackFrame struct {
	node *Node
}

// dfsVisitor is called on a node's discovery ("enter") and on its finish
// ("exit"). Either callback may be nil.
type dfsVisitor struct {
	onEnter func(*Node)
	onExit  func(*Node)
}

// depthFirstTraversal runs the iterative two-phase DFS described in the
// graph algorithms section: a node's frame is peeked (not popped) while WHITE
// to report its enter and recolor it GRAY, and popped (reporting its exit)
// once re-peeked while GRAY. A node pushed more than once (reached by several
// edges before it was discovered) has its extra frames popped without effect
// once it is BLACK. It returns true if any back-edge (an
// edge into a GRAY node) was observed, which is exactly the graph-has-a-cycle
// condition.
func (g *Graph) depthFirstTraversal(visitor dfsVisitor) bool {
	for _, name := range g.order {
		g.nodes[name].resetTraversalState()
	}

	time := 0
	cyclic := false

	for _, name := range g.order {
		root := g.nodes[name]
		if root.clr != white {
			continue
		}

		stack := []*stackFrame{{node: root}}

		for len(stack) > 0 {
			frame := stack[len(stack)-1]
			node := frame.node

			switch node.clr {
			case white:
				time++
				node.discoveryTime = time

				if visitor.onEnter != nil {
					visitor.onEnter(node)
				}

				node.clr = gray

				for _, succ := range node.Successors() {
					switch succ.clr {
					case white:
						succ.predecessor = node
						stack = append(stack, &stackFrame{node: succ})
					case gray:
						cyclic = true
					case black:
						// Already finished; reentry via a duplicate edge is a no-op.
					}
				}
			case gray:
				time++
				node.finishingTime = time

				if visitor.onExit != nil {
					visitor.onExit(node)
				}

				node.clr = black
				stack = stack[:len(stack)-1]
			case black:
				// Reached via a duplicate edge after the node already finished.
				stack = stack[:len(stack)-1]
			}
		}
	}

	return cyclic
}

// HasCycle reports whether the graph contains a cycle, including the trivial
// case of a node that depends on itself via a topic it also publishes.
func (g *Graph) HasCycle() bool {
	return g.depthFirstTraversal(dfsVisitor{})
}

// TopologicalSort returns the graph's nodes in an order where every edge
// u->v has u appearing before v. It fails with GraphIsCyclicError if the
// graph contains a cycle, in which case no such order exists.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	var finished []*Node

	cyclic := g.depthFirstTraversal(dfsVisitor{
		onExit: func(n *Node) { finished = append(finished, n) },
	})
	if cyclic {
		return nil, GraphIsCyclicError{}
	}

	out := make([]*Node, len(finished))
	for i, n := range finished {
		out[len(finished)-1-i] = n
	}

	return out, nil
}

// BFSVisitor is called on a node's discovery ("enter") and, after all of its
// successors have been enqueued, on its expansion ("exit").
type BFSVisitor struct {
	OnEnter func(*Node)
	OnExit  func(*Node)
}

// BreadthFirstTraversal runs BFS from start, which is a node of g; it does
// not accept a process name. maxDepth bounds how far the frontier expands:
//
//   - nil means unbounded: every node reachable from start is visited.
//   - a pointer to 0 confines the traversal to start alone, matching the
//     "not propagate to descendants" policy semantics. This is coded as an
//     explicit check rather than left to fall out of the discovery-time
//     arithmetic, per the design note calling out that coincidence as too
//     subtle to rely on.
//
// Duplicate edges (a node reachable more than once, e.g. via two shared
// topics) are tolerated: reentry into a non-WHITE node is a no-op and the
// visitor is never called twice for the same node.
func (g *Graph) BreadthFirstTraversal(start *Node, visitor BFSVisitor, maxDepth *int) {
	for _, name := range g.order {
		g.nodes[name].resetTraversalState()
	}

	start.discoveryTime = 1

	if maxDepth != nil && *maxDepth == 0 {
		start.clr = gray
		if visitor.OnEnter != nil {
			visitor.OnEnter(start)
		}

		start.clr = black

		if visitor.OnExit != nil {
			visitor.OnExit(start)
		}

		return
	}

	queue := []*Node{start}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		// A node reached via more than one edge (shared topics, or a parent
		// already enqueued via two parallel edges) may appear in the queue
		// more than once. Only the first dequeue does anything; later ones
		// are a no-op rather than a double visitor call.
		if node.clr != white {
			continue
		}

		if node.predecessor != nil {
			node.discoveryTime = node.predecessor.discoveryTime + 1
		}

		if visitor.OnEnter != nil {
			visitor.OnEnter(node)
		}

		node.clr = gray

		if maxDepth == nil || node.discoveryTime+1 < *maxDepth {
			for _, succ := range node.Successors() {
				// Checking the successor's own color (not comparing the node
				// to the WHITE symbol) is the fix for the original's
				// suspected miscomparison bug.
				if succ.clr == white {
					succ.predecessor = node
					queue = append(queue, succ)
				}
			}
		}

		node.clr = black

		if visitor.OnExit != nil {
			visitor.OnExit(node)
		}
	}
}
