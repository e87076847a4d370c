package recovery

import (
	"context"
	"time"

	"github.com/zippylabs/mercury/internal/util"
)

// State is one node of the Recovery Engine's state machine. NextState
// decides, given an incoming event, what state to transition to (it may
// return the current state itself, as Catastrophic does). Action runs once,
// as the state is entered, and may return a follow-up event for the engine to
// dispatch next, or EventNone if there is nothing further to react to.
type State interface {
	Name() string
	NextState(event Event) (State, error)
	Action(ctx context.Context, eng *Engine, rc *RecoveryContext) (Event, error)
}

// escalateOrUnexpected implements the rule shared by every active-recovery
// state: EXITED, LIVENESS_FAILED, or CATASTROPHIC always wins and drives the
// machine to Catastrophic (a second failure during recovery escalates rather
// than being queued behind the first), and anything else is an error.
func escalateOrUnexpected(state State, event Event) (State, error) {
	switch event {
	case EventExited, EventLivenessFailed, EventCatastrophic:
		return catastrophicState{}, nil
	default:
		return nil, unexpectedEventError{State: state.Name(), Event: event}
	}
}

// initialState is the state the engine starts in. Its only legal transition
// is REQUEST_LAUNCH_PROCESSES, dispatched once by whoever starts the engine;
// its Action is never actually run.
type initialState struct{}

func (initialState) Name() string { return "Initial" }

func (s initialState) NextState(event Event) (State, error) {
	if event == EventRequestLaunchProcesses {
		return launchingAllState{}, nil
	}

	return nil, unexpectedEventError{State: s.Name(), Event: event}
}

func (initialState) Action(context.Context, *Engine, *RecoveryContext) (Event, error) {
	return EventNone, nil
}

// launchingAllState performs the system's initial launch: every node,
// scheduled in topological order, spaced by the engine's inter-launch delay.
type launchingAllState struct{}

func (launchingAllState) Name() string { return "LaunchingAll" }

func (s launchingAllState) NextState(event Event) (State, error) {
	if event == EventProcessesLaunched {
		return nominalState{}, nil
	}

	return escalateOrUnexpected(s, event)
}

func (s launchingAllState) Action(ctx context.Context, eng *Engine, _ *RecoveryContext) (Event, error) {
	order, err := eng.graph.TopologicalSort()
	if err != nil {
		return EventNone, err
	}

	const firstLaunchDelay = 1 * time.Second

	lastSchedule := firstLaunchDelay

	for i, node := range order {
		schedule := firstLaunchDelay + time.Duration(i)*eng.interLaunchDelay
		if schedule > lastSchedule {
			lastSchedule = schedule
		}

		eng.scheduleLaunch(node, schedule)
	}

	if err := eng.sleep(ctx, lastSchedule+time.Second); err != nil {
		return EventNone, err
	}

	eng.log.Info("all processes launched")

	return EventProcessesLaunched, nil
}

// nominalState is the steady state: everything is believed to be healthy.
type nominalState struct{}

func (nominalState) Name() string { return "Nominal" }

func (s nominalState) NextState(event Event) (State, error) {
	if event == EventExited || event == EventLivenessFailed {
		return attemptRecoveryState{}, nil
	}

	return nil, unexpectedEventError{State: s.Name(), Event: event}
}

func (nominalState) Action(context.Context, *Engine, *RecoveryContext) (Event, error) {
	return EventNone, nil
}

// attemptRecoveryState inspects the failed node's policy and decides what to
// do about it.
type attemptRecoveryState struct{}

func (attemptRecoveryState) Name() string { return "AttemptRecovery" }

func (s attemptRecoveryState) NextState(event Event) (State, error) {
	switch event {
	case EventFailureIgnored:
		return nominalState{}, nil
	case EventRequestStopSubgraph:
		return requestStopSubgraphState{}, nil
	default:
		return escalateOrUnexpected(s, event)
	}
}

func (attemptRecoveryState) Action(_ context.Context, eng *Engine, rc *RecoveryContext) (Event, error) {
	policy := rc.FailedNode.Policy

	switch {
	case policy.IgnoreFailures:
		eng.log.WithField("process", rc.FailedNode.Name()).Info("failure ignored by policy")

		return EventFailureIgnored, nil
	case policy.FailureIsCatastrophic:
		eng.log.WithField("process", rc.FailedNode.Name()).Warn("failure is catastrophic by policy")

		return EventCatastrophic, nil
	default:
		eng.log.WithField("process", rc.FailedNode.Name()).Warn("attempting subgraph recovery")

		return EventRequestStopSubgraph, nil
	}
}

// subgraphMaxDepth implements the depth semantics called for by the spec:
// confine the BFS to the failing node alone unless its policy propagates
// to descendants, in which case the whole reachable subgraph is affected.
// This is coded as an explicit branch rather than left to fall out of the
// BFS guard's discovery-time arithmetic.
func subgraphMaxDepth(rc *RecoveryContext) *int {
	if rc.FailedNode.Policy.PropagateToDescendants {
		return nil
	}

	zero := 0

	return &zero
}

// requestStopSubgraphState asks every affected node to stop gracefully,
// disabling its watcher's events first so the stop itself doesn't get
// reported back as a failure.
type requestStopSubgraphState struct{}

func (requestStopSubgraphState) Name() string { return "RequestStopSubgraph" }

func (s requestStopSubgraphState) NextState(event Event) (State, error) {
	if event == EventForceStopSubgraph {
		return forceStopSubgraphState{}, nil
	}

	return escalateOrUnexpected(s, event)
}

func (requestStopSubgraphState) Action(_ context.Context, eng *Engine, rc *RecoveryContext) (Event, error) {
	maxDepth := subgraphMaxDepth(rc)

	eng.graph.BreadthFirstTraversal(rc.FailedNode, graphVisitor(
		func(n node) { n.Watcher.DisableEvents() },
		func(n node) { _ = n.Watcher.RequestStop() },
	), maxDepth)

	return EventForceStopSubgraph, nil
}

// forceStopSubgraphState follows up a graceful stop request with a forceful
// one, over the same affected subgraph.
type forceStopSubgraphState struct{}

func (forceStopSubgraphState) Name() string { return "ForceStopSubgraph" }

func (s forceStopSubgraphState) NextState(event Event) (State, error) {
	if event == EventRestartFailedProcesses {
		return restartSubgraphState{}, nil
	}

	return escalateOrUnexpected(s, event)
}

func (forceStopSubgraphState) Action(_ context.Context, eng *Engine, rc *RecoveryContext) (Event, error) {
	maxDepth := subgraphMaxDepth(rc)

	eng.graph.BreadthFirstTraversal(rc.FailedNode, graphVisitor(
		nil,
		func(n node) { _ = n.Watcher.ForceStop() },
	), maxDepth)

	return EventRestartFailedProcesses, nil
}

// restartSubgraphState relaunches the affected subgraph, wave by wave: every
// node at the same BFS depth relaunches in parallel, and consecutive waves
// are spaced by the engine's inter-launch delay.
type restartSubgraphState struct{}

func (restartSubgraphState) Name() string { return "RestartSubgraph" }

func (s restartSubgraphState) NextState(event Event) (State, error) {
	if event == EventRelaunchComplete {
		return nominalState{}, nil
	}

	return escalateOrUnexpected(s, event)
}

func (restartSubgraphState) Action(ctx context.Context, eng *Engine, rc *RecoveryContext) (Event, error) {
	maxDepth := subgraphMaxDepth(rc)

	var maxDiscoveryTime int

	eng.graph.BreadthFirstTraversal(rc.FailedNode, graphVisitor(
		func(n node) {
			if n.DiscoveryTime() > maxDiscoveryTime {
				maxDiscoveryTime = n.DiscoveryTime()
			}

			const firstWaveDelay = 1 * time.Second

			launchTime := firstWaveDelay + time.Duration(n.DiscoveryTime())*eng.interLaunchDelay

			n.Watcher.Reset()
			eng.scheduleRelaunch(n, launchTime)
		},
		nil,
	), maxDepth)

	settleTime := 2*time.Second + time.Duration(maxDiscoveryTime)*eng.interLaunchDelay
	if err := eng.sleep(ctx, settleTime); err != nil {
		return EventNone, err
	}

	return EventRelaunchComplete, nil
}

// catastrophicState is the sink state: every node is stopped, in reverse
// topological order, and the process terminates shortly after.
type catastrophicState struct{}

func (catastrophicState) Name() string { return "Catastrophic" }

func (catastrophicState) NextState(Event) (State, error) {
	return catastrophicState{}, nil
}

func (catastrophicState) Action(_ context.Context, eng *Engine, rc *RecoveryContext) (Event, error) {
	order, err := eng.graph.TopologicalSort()
	if err != nil {
		// A cyclic graph can't be topologically sorted; fall back to
		// insertion order rather than leaving every node running.
		order = eng.graph.Nodes()
	}

	var names []string

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		names = append(names, n.Name())

		eng.log.WithField("process", n.Name()).Warn("disabling events and requesting graceful stop")

		n.Watcher.DisableEvents()
		_ = n.Watcher.RequestStop()

		eng.scheduleForceStop(n, eng.catastrophicWait)
	}

	eng.metrics.RegisterCatastrophic()

	if eng.notifier != nil {
		failed := "unknown"
		if rc.FailedNode != nil {
			failed = rc.FailedNode.Name()
		}

		if err := eng.notifier.NotifyCatastrophic(context.Background(), failed, names); err != nil {
			eng.log.WithError(err).Warn("failed to send catastrophic-shutdown notification")
		}
	}

	grace := 2 * eng.catastrophicWait

	eng.log.WithField("grace_period", util.FormatSeconds(grace.Seconds())).
		Warn("scheduling final shutdown")

	eng.scheduleShutdown(grace)

	return EventNone, nil
}
