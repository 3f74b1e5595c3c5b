// Package scheduler builds the deterministic linear schedule a toastfile's
// task graph is executed in (spec §4.4). Unlike a general build-tool
// scheduler, Toast never runs tasks in parallel — Docker has no operation
// to merge two images produced from the same base — so this package's job
// is purely to linearize the reachable subgraph the same way every time.
package scheduler

import (
	"sort"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/fielderr"
)

// ResolveRoots determines which task names a schedule should be built
// from: the explicit roots if any were given, else the toastfile's
// default task if one is configured, else every declared task (spec §4.4:
// "empty means 'all tasks unless a default is set, in which case just the
// default'").
func ResolveRoots(tf *domain.Toastfile, requested []string) ([]string, error) {
	if len(requested) > 0 {
		for _, name := range requested {
			if _, ok := tf.Tasks[name]; !ok {
				return nil, fielderr.With(domain.ErrUnknownTask, "task_name", name)
			}
		}
		return requested, nil
	}

	if tf.Default != "" {
		return []string{tf.Default}, nil
	}

	if len(tf.Tasks) == 0 {
		return nil, domain.ErrNoTasksSpecified
	}
	return tf.TaskNames(), nil
}

// BuildSchedule computes the schedule reachable from roots and resolves
// each task against processEnv, in the order tasks must execute in.
//
// The traversal is an iterative (explicit-stack, not recursive)
// depth-first post-order walk: a task's dependencies are visited, in
// lexicographic order, before the task itself is appended to the
// schedule, and the roots themselves are visited in lexicographic order.
// Because both orderings are fixed by name rather than by caller-supplied
// order, `toast a b` and `toast b a` always produce byte-identical
// schedules (spec testable property 1, scenario S2).
func BuildSchedule(tf *domain.Toastfile, roots []string, processEnv map[string]string) ([]domain.ResolvedTask, error) {
	order, err := traverse(tf, roots)
	if err != nil {
		return nil, err
	}

	schedule := make([]domain.ResolvedTask, 0, len(order))
	for _, name := range order {
		resolved, err := tf.Resolve(name, processEnv)
		if err != nil {
			return nil, err
		}
		schedule = append(schedule, *resolved)
	}
	return schedule, nil
}

const (
	colorUnvisited = 0
	colorVisiting  = 1
	colorVisited   = 2
)

type frame struct {
	name   string
	deps   []string
	depIdx int
}

// traverse performs the iterative DFS post-order walk described above,
// starting a fresh walk for each root (roots visited in lexicographic
// order) and sharing one color map and one path across all of them so a
// cycle reachable from a later root, through a task a prior root already
// finished, is still caught.
func traverse(tf *domain.Toastfile, roots []string) ([]string, error) {
	sortedRoots := append([]string(nil), roots...)
	sort.Strings(sortedRoots)

	color := make(map[string]int, len(tf.Tasks))
	var order []string
	var path []string

	for _, root := range sortedRoots {
		if color[root] == colorVisited {
			continue
		}
		if err := walkFrom(tf, root, color, &path, &order); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func walkFrom(tf *domain.Toastfile, root string, color map[string]int, path *[]string, order *[]string) error {
	if _, ok := tf.Tasks[root]; !ok {
		return fielderr.With(domain.ErrMissingDependency, "dependency", root)
	}

	var stack []*frame
	push := func(name string) {
		color[name] = colorVisiting
		*path = append(*path, name)
		stack = append(stack, &frame{name: name, deps: sortedDeps(tf, name)})
	}
	push(root)

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.depIdx >= len(top.deps) {
			color[top.name] = colorVisited
			*order = append(*order, top.name)
			stack = stack[:len(stack)-1]
			*path = (*path)[:len(*path)-1]
			continue
		}

		dep := top.deps[top.depIdx]
		top.depIdx++

		switch color[dep] {
		case colorVisiting:
			return cycleError(*path, dep)
		case colorVisited:
			continue
		default:
			if _, ok := tf.Tasks[dep]; !ok {
				return fielderr.With(domain.ErrMissingDependency, "dependency", dep)
			}
			push(dep)
		}
	}
	return nil
}

func sortedDeps(tf *domain.Toastfile, name string) []string {
	deps := append([]string(nil), tf.Tasks[name].Dependencies...)
	sort.Strings(deps)
	return deps
}

func cycleError(path []string, closingDep string) error {
	start := 0
	for i, n := range path {
		if n == closingDep {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), path[start:]...), closingDep)
	joined := ""
	for i, n := range cycle {
		if i > 0 {
			joined += " -> "
		}
		joined += n
	}
	return fielderr.With(domain.ErrCycleDetected, "cycle", joined)
}
