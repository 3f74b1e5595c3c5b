// Package cachekey derives the chained cache keys a schedule of
// resolved tasks is executed under: each task's key absorbs its
// predecessor's key (or the toastfile's base image, for the first
// task), so a change anywhere upstream invalidates everything
// downstream even if a task's own declaration is untouched.
package cachekey

import (
	"sort"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/engine/fingerprint"
	"github.com/toastbuild/toast/internal/engine/pathcollector"
)

// Derive computes one cache key per task in schedule, in order,
// assuming every task's key chains from its immediate predecessor's key
// (the case when every task in the schedule is cacheable and commits).
// root is the toastfile's directory, used to resolve each task's input
// paths. processEnv supplies the overrides used to compute each
// environment binding's effective value; a required binding with no
// override is expected to have already failed validation during
// Toastfile.Resolve.
//
// The run loop does not use this directly — a non-cacheable task never
// advances the carrier image, so downstream keys must chain from the
// carrier rather than blindly from the previous task's key (spec
// testable property 5). It calls DeriveOne per task instead, threading
// its own carrier value. Derive exists for callers (and tests) that
// only care about the deterministic, all-cacheable case.
func Derive(schedule []domain.ResolvedTask, processEnv map[string]string, root, baseImage string) ([]string, error) {
	keys := make([]string, len(schedule))
	predecessor := baseImage

	for i, task := range schedule {
		key, err := DeriveOne(task, processEnv, root, predecessor)
		if err != nil {
			return nil, err
		}
		keys[i] = key
		predecessor = key
	}
	return keys, nil
}

// DeriveOne computes the cache key for a single task, absorbing
// predecessor — the current carrier image reference, whatever it is —
// as the first field.
func DeriveOne(task domain.ResolvedTask, processEnv map[string]string, root, predecessor string) (string, error) {
	entries, err := pathcollector.Collect(root, task.InputPaths, task.ExcludedInputPaths)
	if err != nil {
		return "", err
	}

	f := fingerprint.New().
		AbsorbString(predecessor).
		AbsorbString(task.Command).
		AbsorbString(task.CommandPrefix).
		AbsorbString(task.User).
		AbsorbString(task.Location).
		AbsorbMapping(effectiveEnvironment(task.Environment, processEnv))

	absorbEntries(f, entries)

	outputs := append([]string(nil), task.OutputPaths...)
	sort.Strings(outputs)
	f.AbsorbSequence(outputs)

	return f.Sum(), nil
}

func effectiveEnvironment(bindings map[string]domain.EnvBinding, processEnv map[string]string) map[string]string {
	effective := make(map[string]string, len(bindings))
	for name, binding := range bindings {
		effective[name] = domain.EffectiveValue(binding, name, processEnv)
	}
	return effective
}

func absorbEntries(f *fingerprint.Fingerprint, entries []pathcollector.Entry) {
	f.AbsorbUint64(uint64(len(entries)))
	for _, e := range entries {
		f.AbsorbString(e.RelPath.String())
		f.AbsorbUint64(uint64(e.Kind))
		f.AbsorbUint64(uint64(e.Mode))
		switch e.Kind {
		case pathcollector.KindFile:
			f.AbsorbBytes(e.Content)
		case pathcollector.KindSymlink:
			f.AbsorbBytes(e.LinkTarget)
		}
	}
}
