package recovery_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zippylabs/mercury/pkg/graph"
	"github.com/zippylabs/mercury/pkg/recovery"
	"github.com/zippylabs/mercury/pkg/types"
)

func oneNodeGraph(t *testing.T, policy types.ManagedProcess) (*graph.Graph, *graph.Node) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "proc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 5\n"), 0o755))

	policy.ExecutablePath = path

	g := graph.New()
	_, err := g.AddNode(policy)
	require.NoError(t, err)
	require.NoError(t, g.Build())

	return g, g.Node(policy.ProcessName)
}

func TestDispatchRejectsUnexpectedEventFromInitial(t *testing.T) {
	t.Parallel()

	g, _ := oneNodeGraph(t, types.ManagedProcess{ProcessName: "a", IgnorePolicy: &types.IgnorePolicyConfig{}})
	eng := recovery.NewEngine(g)

	err := eng.Dispatch(t.Context(), recovery.EventRelaunchComplete, &recovery.RecoveryContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, recovery.ErrUnexpectedEvent)
}

func TestSelfTransitionOnCatastrophicIsANoOp(t *testing.T) {
	t.Parallel()

	g, node := oneNodeGraph(t, types.ManagedProcess{ProcessName: "a", FailPolicy: &types.FailPolicyConfig{}})
	eng := recovery.NewEngine(g,
		recovery.WithInterLaunchDelay(time.Millisecond),
		recovery.WithCatastrophicWait(5*time.Millisecond),
	)

	require.NoError(t, eng.Dispatch(t.Context(), recovery.EventRequestLaunchProcesses, &recovery.RecoveryContext{}))

	// Drive straight to Catastrophic, then dispatch a second failure: the
	// sink state must re-accept it without erroring (self-transition, no
	// re-run of the shutdown action).
	rc := &recovery.RecoveryContext{FailedNode: node}
	require.NoError(t, eng.Dispatch(t.Context(), recovery.EventExited, rc))
	require.NoError(t, eng.Dispatch(t.Context(), recovery.EventCatastrophic, rc))
}
