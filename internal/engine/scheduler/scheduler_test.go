package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/engine/scheduler"
)

func names(schedule []domain.ResolvedTask) []string {
	out := make([]string, len(schedule))
	for i, t := range schedule {
		out[i] = t.Name.String()
	}
	return out
}

func twoTaskToastfile() *domain.Toastfile {
	return domain.NewToastfile("alpine", "", "", "", "", map[string]*domain.Task{
		"a": {Command: "echo a"},
		"b": {Dependencies: []string{"a"}, Command: "echo b"},
	})
}

func TestBuildSchedule_DeterministicRegardlessOfRequestOrder(t *testing.T) {
	tf := twoTaskToastfile()

	forward, err := scheduler.BuildSchedule(tf, []string{"a", "b"}, nil)
	require.NoError(t, err)

	backward, err := scheduler.BuildSchedule(tf, []string{"b", "a"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, names(forward))
	assert.Equal(t, names(forward), names(backward))
}

func TestBuildSchedule_DependencyBeforeDependent(t *testing.T) {
	tf := twoTaskToastfile()
	schedule, err := scheduler.BuildSchedule(tf, []string{"b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(schedule))
}

func TestBuildSchedule_Cycle(t *testing.T) {
	tf := domain.NewToastfile("alpine", "", "", "", "", map[string]*domain.Task{
		"a": {Dependencies: []string{"b"}},
		"b": {Dependencies: []string{"a"}},
	})

	_, err := scheduler.BuildSchedule(tf, []string{"a"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestBuildSchedule_DiamondVisitsSharedDependencyOnce(t *testing.T) {
	tf := domain.NewToastfile("alpine", "", "", "", "", map[string]*domain.Task{
		"base": {},
		"left":  {Dependencies: []string{"base"}},
		"right": {Dependencies: []string{"base"}},
		"top":   {Dependencies: []string{"left", "right"}},
	})

	schedule, err := scheduler.BuildSchedule(tf, []string{"top"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "left", "right", "top"}, names(schedule))
}

func TestResolveRoots_EmptyUsesDefault(t *testing.T) {
	tf := twoTaskToastfile()
	tf.Default = "b"

	roots, err := scheduler.ResolveRoots(tf, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, roots)
}

func TestResolveRoots_EmptyWithNoDefaultUsesAllTasks(t *testing.T) {
	tf := twoTaskToastfile()

	roots, err := scheduler.ResolveRoots(tf, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, roots)
}

func TestResolveRoots_UnknownTask(t *testing.T) {
	tf := twoTaskToastfile()
	_, err := scheduler.ResolveRoots(tf, []string{"ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownTask)
}

func TestBuildSchedule_OnlyReachableSubgraphIncluded(t *testing.T) {
	tf := domain.NewToastfile("alpine", "", "", "", "", map[string]*domain.Task{
		"a":       {},
		"b":       {Dependencies: []string{"a"}},
		"unrelated": {},
	})

	schedule, err := scheduler.BuildSchedule(tf, []string{"b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(schedule))
}
