package watchdog

import (
	"context"
	"fmt"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/zippylabs/mercury/internal/util"
	"github.com/zippylabs/mercury/pkg/graph"
	"github.com/zippylabs/mercury/pkg/recovery"
)

// Checker reports whether n is still alive. The default checker consults the
// node's Process Watcher; a caller with a richer liveness probe (a heartbeat
// file, a health endpoint) can supply its own.
type Checker func(n *graph.Node) bool

// defaultChecker treats a node as alive as long as its watcher has not
// observed an exit. A node that was never launched is considered alive: the
// watchdog's job is catching processes that died silently, not policing
// startup ordering, which LaunchingAll already owns.
func defaultChecker(n *graph.Node) bool {
	return !n.Watcher.HasExited()
}

// Watchdog runs a cron-scheduled sweep over every node in a graph, dispatching
// EventLivenessFailed against the Recovery Engine for any node its Checker
// reports as no longer alive.
type Watchdog struct {
	cron    *cron.Cron
	graph   *graph.Graph
	engine  *recovery.Engine
	checker Checker
	log     *logrus.Entry

	lastFailed []string
}

// New builds a Watchdog that will sweep g on the given cron spec once
// Start is called. A zero-value checker defaults to defaultChecker.
func New(g *graph.Graph, eng *recovery.Engine, checker Checker) *Watchdog {
	if checker == nil {
		checker = defaultChecker
	}

	return &Watchdog{
		cron:    cron.New(),
		graph:   g,
		engine:  eng,
		checker: checker,
		log:     logrus.WithField("component", "watchdog"),
	}
}

// Start schedules the sweep on spec and starts the cron scheduler. It
// returns an error immediately if spec is not a valid cron expression.
func (wd *Watchdog) Start(spec string) error {
	if err := wd.cron.AddFunc(spec, wd.sweep); err != nil {
		return fmt.Errorf("scheduling watchdog sweep on %q: %w", spec, err)
	}

	wd.cron.Start()

	return nil
}

// Stop halts the scheduler, letting any in-flight sweep finish.
func (wd *Watchdog) Stop() {
	wd.cron.Stop()
}

// sweep checks every node's liveness, dispatching EventLivenessFailed for
// each one that fails. A node dispatched against again while the engine is
// still recovering from an earlier failure is handled by the engine's own
// escalation rule, which treats that second failure as a promotion to
// Catastrophic, not a crash. An event the engine rejects (for example one
// dispatched before the engine has started) is logged at debug level.
//
// If the set of failing processes is unchanged from the previous sweep, the
// per-process warning is downgraded to debug: the engine already knows about
// these and is (or was) recovering them, so repeating a warning every cron
// tick for an unchanged condition is just noise.
func (wd *Watchdog) sweep() {
	var failed []string

	repeat := false

	for _, n := range wd.graph.Nodes() {
		if n.Policy.IgnoreFailures {
			continue
		}

		if wd.checker(n) {
			continue
		}

		failed = append(failed, n.Name())
	}

	if util.SliceEqual(failed, wd.lastFailed) {
		repeat = true
	}

	wd.lastFailed = failed

	for _, name := range failed {
		n := wd.graph.Node(name)

		entry := wd.log.WithField("process", name)
		if repeat {
			entry.Debug("liveness check still failing")
		} else {
			entry.Warn("liveness check failed")
		}

		rc := &recovery.RecoveryContext{FailedNode: n}

		if err := wd.engine.Dispatch(context.Background(), recovery.EventLivenessFailed, rc); err != nil {
			wd.log.WithError(err).WithField("process", name).Debug("liveness dispatch rejected by engine")
		}
	}
}
