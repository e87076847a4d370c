package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zippylabs/mercury/internal/util"
	"github.com/zippylabs/mercury/pkg/graph"
	"github.com/zippylabs/mercury/pkg/metrics"
	"github.com/zippylabs/mercury/pkg/watcher"
)

// maxSchedulingDelay bounds WithInterLaunchDelay/WithCatastrophicWait: a
// misconfigured caller (a negative duration, or an absurdly large one from a
// bad flag/config value) clamps to a sane range instead of wedging the
// launch sequence or the Catastrophic shutdown sequence indefinitely.
const maxSchedulingDelay = time.Hour

// clampDelay restricts d to [0, maxSchedulingDelay].
func clampDelay(d time.Duration) time.Duration {
	return time.Duration(util.Clamp(float64(d), 0, float64(maxSchedulingDelay)))
}

// node is a short alias used only to keep the BFS visitor signatures in
// states.go readable.
type node = *graph.Node

// graphVisitor adapts a pair of possibly-nil node callbacks to the shape
// graph.BreadthFirstTraversal expects.
func graphVisitor(onEnter, onExit func(node)) graph.BFSVisitor {
	v := graph.BFSVisitor{}

	if onEnter != nil {
		v.OnEnter = func(n *graph.Node) { onEnter(n) }
	}

	if onExit != nil {
		v.OnExit = func(n *graph.Node) { onExit(n) }
	}

	return v
}

// Notifier is notified when the Recovery Engine enters the Catastrophic
// state. internal/notify implements this against shoutrrr.
type Notifier interface {
	NotifyCatastrophic(ctx context.Context, failedProcess string, processes []string) error
}

// Engine is the Recovery Engine: a state machine, parameterized by a process
// graph, serialized by a single mutex per the spec's concurrency model so
// that at most one state-entry action runs at a time and a failure observed
// mid-recovery is never silently dropped.
type Engine struct {
	mu      sync.Mutex
	graph   *graph.Graph
	current State

	metrics          *metrics.Metrics
	notifier         Notifier
	interLaunchDelay time.Duration
	catastrophicWait time.Duration
	log              *logrus.Entry

	done chan struct{}
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithInterLaunchDelay overrides the default 5-second spacing between
// launch/relaunch waves.
func WithInterLaunchDelay(d time.Duration) Option {
	return func(e *Engine) { e.interLaunchDelay = clampDelay(d) }
}

// WithCatastrophicWait overrides the default 10-second grace period between
// a graceful stop request and the follow-up forceful stop during
// Catastrophic.
func WithCatastrophicWait(d time.Duration) Option {
	return func(e *Engine) { e.catastrophicWait = clampDelay(d) }
}

// WithMetrics overrides the default (metrics.Default()) metrics handler.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNotifier overrides the default (no-op) catastrophic-shutdown notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine builds an Engine over g, in InitialState, and binds every node's
// Process Watcher to report exits back to the engine.
func NewEngine(g *graph.Graph, opts ...Option) *Engine {
	eng := &Engine{
		graph:            g,
		current:          initialState{},
		metrics:          metrics.Default(),
		interLaunchDelay: 5 * time.Second,
		catastrophicWait: 10 * time.Second,
		log:              logrus.WithField("component", "recovery"),
		done:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(eng)
	}

	for _, n := range g.Nodes() {
		eng.bindWatcher(n)
	}

	return eng
}

// Done returns a channel that is closed once the engine has entered
// Catastrophic and let its shutdown grace period elapse — the Go equivalent
// of the original's event-loop-stop call. Callers (main) should exit once
// this closes.
func (eng *Engine) Done() <-chan struct{} {
	return eng.done
}

// Start kicks the state machine off: InitialState -> LaunchingAll.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.Dispatch(ctx, EventRequestLaunchProcesses, &RecoveryContext{})
}

// Dispatch feeds event to the state machine. It acquires the engine's single
// mutex, computes the next state, and — if the state actually changes —
// holds the lock for the duration of that state's entry action, exactly as
// the spec's serialization discipline requires: at most one entry action
// runs at a time, and any event arriving mid-action waits for the lock and is
// then dispatched against whatever state is current once it's acquired.
//
// If the action returns a follow-up event, Dispatch recurses (after
// releasing the lock) to process it.
func (eng *Engine) Dispatch(ctx context.Context, event Event, rc *RecoveryContext) error {
	eng.mu.Lock()

	next, err := eng.current.NextState(event)
	if err != nil {
		eng.mu.Unlock()
		eng.log.WithError(err).WithField("state", eng.current.Name()).Error("unexpected event")

		return err
	}

	if next.Name() == eng.current.Name() {
		eng.mu.Unlock()

		return nil
	}

	eng.log.WithFields(logrus.Fields{
		"from":  eng.current.Name(),
		"to":    next.Name(),
		"event": event.String(),
	}).Info("state transition")

	eng.current = next

	follow, actionErr := next.Action(ctx, eng, rc)

	eng.mu.Unlock()

	if actionErr != nil {
		eng.log.WithError(actionErr).WithField("state", next.Name()).Error("state action failed")

		return actionErr
	}

	if follow != EventNone {
		return eng.Dispatch(ctx, follow, rc)
	}

	return nil
}

// bindWatcher attaches a node's exit-notification callback: an observed exit
// dispatches EventExited against this node, asynchronously, from whatever
// goroutine is running the child's Wait().
func (eng *Engine) bindWatcher(n *graph.Node) {
	n.Watcher.Bind(func(code int) {
		eng.metrics.RegisterExit(n.Name())
		eng.log.WithFields(logrus.Fields{"process": n.Name(), "exit_code": code}).Warn("process exited")

		go func() {
			if err := eng.Dispatch(context.Background(), EventExited, &RecoveryContext{FailedNode: n, ExitCode: code}); err != nil {
				eng.log.WithError(err).WithField("process", n.Name()).Error("failed to dispatch exit event")
			}
		}()
	})
}

// launchNode launches a single node's process and records the launch metric.
func (eng *Engine) launchNode(ctx context.Context, n *graph.Node) error {
	spec := watcher.LaunchSpec{
		ExecutablePath: n.ExecutablePath,
		Arguments:      n.Arguments,
		Environment:    n.Environment,
		LogFile:        n.LogFile(),
	}

	eng.metrics.RegisterLaunch(n.Name())
	eng.log.WithField("process", n.Name()).Info("launching process")

	if err := watcher.Launch(ctx, spec, n.Watcher); err != nil {
		return fmt.Errorf("launching %s: %w", n.Name(), err)
	}

	return nil
}

// scheduleLaunch launches n after delay, on its own goroutine, logging
// (rather than propagating) a launch failure: a failed launch during initial
// start-up surfaces later as the node never reporting healthy, exactly as it
// would if the child crashed immediately after a successful exec.
func (eng *Engine) scheduleLaunch(n *graph.Node, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := eng.launchNode(context.Background(), n); err != nil {
			eng.log.WithError(err).WithField("process", n.Name()).Error("scheduled launch failed")
		}
	})
}

// scheduleRelaunch relaunches n after delay and re-enables its watcher's
// events once the relaunch completes, so the node starts reporting exits
// again.
func (eng *Engine) scheduleRelaunch(n *graph.Node, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := eng.launchNode(context.Background(), n); err != nil {
			eng.log.WithError(err).WithField("process", n.Name()).Error("scheduled relaunch failed")

			return
		}

		eng.metrics.RegisterRestart(n.Name())
		n.Watcher.EnableEvents()
	})
}

// scheduleForceStop forcefully stops n after delay, giving it time to exit
// on its own in response to the graceful stop request issued first.
func (eng *Engine) scheduleForceStop(n *graph.Node, delay time.Duration) {
	time.AfterFunc(delay, func() {
		_ = n.Watcher.ForceStop()
	})
}

// scheduleShutdown closes the engine's Done channel after delay, signaling
// main that it is safe to exit the process.
func (eng *Engine) scheduleShutdown(delay time.Duration) {
	time.AfterFunc(delay, func() {
		close(eng.done)
	})
}

// sleep blocks for d, or until ctx is canceled, whichever comes first.
func (eng *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
