package graph_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zippylabs/mercury/pkg/graph"
	"github.com/zippylabs/mercury/pkg/types"
)

// executableFixture creates a small executable file in t.TempDir and returns
// its path, standing in for a real managed process's executable_path.
func executableFixture(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	return path
}

func ignorePolicyProcess(t *testing.T, name string) types.ManagedProcess {
	t.Helper()

	return types.ManagedProcess{
		ProcessName:    name,
		ExecutablePath: executableFixture(t, name),
		IgnorePolicy:   &types.IgnorePolicyConfig{},
	}
}

func TestAddNodeRejectsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	g := graph.New()

	_, err := g.AddNode(types.ManagedProcess{ExecutablePath: "/bin/true"})
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrMissingRequiredField)

	_, err = g.AddNode(types.ManagedProcess{ProcessName: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrMissingRequiredField)
}

func TestAddNodeRejectsUnusableExecutable(t *testing.T) {
	t.Parallel()

	g := graph.New()

	_, err := g.AddNode(types.ManagedProcess{
		ProcessName:    "a",
		ExecutablePath: filepath.Join(t.TempDir(), "does-not-exist"),
		IgnorePolicy:   &types.IgnorePolicyConfig{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrExecutableUnusable)

	dir := t.TempDir()
	_, err = g.AddNode(types.ManagedProcess{
		ProcessName:    "b",
		ExecutablePath: dir,
		IgnorePolicy:   &types.IgnorePolicyConfig{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrExecutableUnusable)
}

func TestAddNodeRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	g := graph.New()

	proc := ignorePolicyProcess(t, "a")
	_, err := g.AddNode(proc)
	require.NoError(t, err)

	_, err = g.AddNode(proc)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrDuplicateName)
}

func TestAddNodeWarnsOnMissingPolicy(t *testing.T) {
	t.Parallel()

	g := graph.New()

	node, err := g.AddNode(types.ManagedProcess{
		ProcessName:    "a",
		ExecutablePath: executableFixture(t, "a"),
	})
	require.NotNil(t, node)

	var warning types.MissingPolicyWarning
	require.True(t, errors.As(err, &warning))
	assert.True(t, node.Policy.FailureIsCatastrophic)
}

func TestAddNodeRejectsAmbiguousPolicy(t *testing.T) {
	t.Parallel()

	g := graph.New()

	_, err := g.AddNode(types.ManagedProcess{
		ProcessName:    "a",
		ExecutablePath: executableFixture(t, "a"),
		FailPolicy:     &types.FailPolicyConfig{},
		IgnorePolicy:   &types.IgnorePolicyConfig{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnknownPolicy)
}

func TestBuildDerivesTopicAndDependencyEdges(t *testing.T) {
	t.Parallel()

	g := graph.New()

	a := ignorePolicyProcess(t, "a")
	a.ProvidedTopics = map[string]int{"topic.a": 1}

	b := ignorePolicyProcess(t, "b")
	b.RequiredTopics = []string{"topic.a"}

	c := ignorePolicyProcess(t, "c")
	c.AdditionalProcessDependencies = []string{"b"}

	for _, p := range []types.ManagedProcess{a, b, c} {
		_, err := g.AddNode(p)
		require.NoError(t, err)
	}

	require.NoError(t, g.Build())

	order, err := g.TopologicalSort()
	require.NoError(t, err)

	names := make([]string, len(order))
	for i, n := range order {
		names[i] = n.Name()
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBuildIsIdempotentWithoutAddNode(t *testing.T) {
	t.Parallel()

	g := graph.New()

	a := ignorePolicyProcess(t, "a")
	a.ProvidedTopics = map[string]int{"topic.a": 1}

	b := ignorePolicyProcess(t, "b")
	b.RequiredTopics = []string{"topic.a"}

	for _, p := range []types.ManagedProcess{a, b} {
		_, err := g.AddNode(p)
		require.NoError(t, err)
	}

	require.NoError(t, g.Build())
	require.NoError(t, g.Build())

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Len(t, order, 2)
}

func TestBuildReportsEveryMissingPublisherAndDependency(t *testing.T) {
	t.Parallel()

	g := graph.New()

	a := ignorePolicyProcess(t, "a")
	a.RequiredTopics = []string{"topic.missing"}
	a.AdditionalProcessDependencies = []string{"no-such-process"}

	_, err := g.AddNode(a)
	require.NoError(t, err)

	err = g.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrGraphBuild)
	assert.Contains(t, err.Error(), "topic.missing")
	assert.Contains(t, err.Error(), "no-such-process")
}

func TestCycleRejection(t *testing.T) {
	t.Parallel()

	g := graph.New()

	a := ignorePolicyProcess(t, "a")
	a.AdditionalProcessDependencies = []string{"b"}

	b := ignorePolicyProcess(t, "b")
	b.AdditionalProcessDependencies = []string{"a"}

	for _, p := range []types.ManagedProcess{a, b} {
		_, err := g.AddNode(p)
		require.NoError(t, err)
	}

	// build succeeds: edges are still formed even though they form a cycle.
	require.NoError(t, g.Build())

	assert.True(t, g.HasCycle())

	_, err := g.TopologicalSort()
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrGraphIsCyclic)
}

func TestSelfPublishIsACycle(t *testing.T) {
	t.Parallel()

	g := graph.New()

	a := ignorePolicyProcess(t, "a")
	a.ProvidedTopics = map[string]int{"topic.a": 1}
	a.RequiredTopics = []string{"topic.a"}

	_, err := g.AddNode(a)
	require.NoError(t, err)
	require.NoError(t, g.Build())

	assert.True(t, g.HasCycle())
}
