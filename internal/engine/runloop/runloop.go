// Package runloop drives a resolved schedule through the nine-phase
// per-task state machine: compute key, probe the cache, ensure the
// carrier image is present, create a container, copy inputs in, run
// the command, commit and copy outputs out, push to the remote cache,
// and tear down. The only state threaded across iterations is the
// carrier image reference — everything else is an explicit parameter.
package runloop

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/core/ports"
	"github.com/toastbuild/toast/internal/engine/cachekey"
	"github.com/toastbuild/toast/internal/engine/cleanup"
	"github.com/toastbuild/toast/internal/engine/pathcollector"
	"github.com/toastbuild/toast/internal/engine/tarstream"
	"github.com/toastbuild/toast/internal/fielderr"
)

// CacheSettings controls which cache tiers are consulted and updated,
// and which image repository cache tags are written under (spec §6).
type CacheSettings struct {
	DockerRepo       string
	ReadLocalCache   bool
	WriteLocalCache  bool
	ReadRemoteCache  bool
	WriteRemoteCache bool
}

// Options controls per-run behavior that isn't part of the toastfile
// itself.
type Options struct {
	// Force disables cache reads (but not writes) for the named tasks.
	Force map[string]bool
	// ForceAll disables cache reads for every task in the schedule.
	ForceAll bool
	// OutputDir overrides the host root output paths are written
	// beneath; when empty, Run's root argument is used.
	OutputDir string
	// Cancelled is polled between phases and before creating a new
	// container; when it reports true, the run loop stops starting new
	// work (spec §5 cancellation semantics).
	Cancelled func() bool
	// ShellHook, if set, is invoked after the loop terminates (success
	// or failure) with the final carrier image reference and the last
	// scheduled task, mirroring the external shell drop-in collaborator
	// (spec §4.6). The run loop's own result is unaffected by its error.
	ShellHook func(carrierImage string, lastTask *domain.ResolvedTask) error
}

// Result reports the outcome of running a schedule.
type Result struct {
	CarrierImage string
	TasksRun     int
	CacheHits    int
}

var ErrCancelled = fielderr.New("run cancelled")

// Run executes schedule in order against baseImage, returning the final
// carrier image reference. processEnv supplies environment overrides
// for both cache-key derivation and the container's actual environment.
func Run(
	ctx context.Context,
	schedule []domain.ResolvedTask,
	processEnv map[string]string,
	root, baseImage string,
	settings CacheSettings,
	exec ports.Executor,
	logger ports.Logger,
	opts Options,
) (Result, error) {
	carrier := baseImage
	result := Result{CarrierImage: baseImage}

	var lastTask *domain.ResolvedTask
	for i := range schedule {
		task := &schedule[i]
		lastTask = task

		if isCancelled(opts) {
			return result, ErrCancelled
		}

		isFinal := i == len(schedule)-1
		next, hit, err := runTask(ctx, task, processEnv, root, carrier, settings, exec, logger, opts, isFinal)
		if err != nil {
			if opts.ShellHook != nil {
				_ = opts.ShellHook(carrier, lastTask)
			}
			return result, err
		}
		if hit {
			result.CacheHits++
		}
		result.TasksRun++
		carrier = next
		result.CarrierImage = carrier
	}

	if opts.ShellHook != nil {
		if err := opts.ShellHook(carrier, lastTask); err != nil {
			logger.Warn("shell drop-in failed: " + err.Error())
		}
	}
	return result, nil
}

func isCancelled(opts Options) bool {
	return opts.Cancelled != nil && opts.Cancelled()
}

// runCommand runs the task's command in containerID and waits for it to
// exit. A cancellation reaching ctx while the container is running (spec §5
// cancellation semantics) does not kill exec.Start outright: it sends the
// container a polite stop and then still waits for Start to return, so
// teardown proceeds exactly as it would after a normal command failure. The
// Start call itself runs against context.Background() rather than ctx, so
// the engine — not exec.CommandContext's own kill-on-cancel behavior — is
// what ends the container.
func runCommand(ctx context.Context, exec ports.Executor, containerID string, logger ports.Logger) (exitCode int, err error, cancelled bool) {
	type result struct {
		exitCode int
		err      error
	}
	done := make(chan result, 1)
	go func() {
		exitCode, err := exec.Start(context.Background(), containerID)
		done <- result{exitCode, err}
	}()

	select {
	case r := <-done:
		return r.exitCode, r.err, false
	case <-ctx.Done():
	}

	logger.Info("cancellation requested, stopping container " + containerID)
	if err := exec.Stop(context.Background(), containerID); err != nil {
		logger.Warn("failed to stop container " + containerID + ": " + err.Error())
	}
	r := <-done
	return r.exitCode, r.err, true
}

// bestEffort wraps a cleanup action the spec marks best-effort (container
// remove, local untag) so its failure is logged rather than overwriting an
// otherwise-successful task's nil error through Guards.Unwind.
func bestEffort(logger ports.Logger, what string, action func() error) func() error {
	return func() error {
		if err := action(); err != nil {
			logger.Warn("best-effort cleanup failed (" + what + "): " + err.Error())
		}
		return nil
	}
}

// runTask executes phases 1-9 for a single task and returns the carrier
// image the next task should build atop, and whether this task was a
// cache hit.
func runTask(
	ctx context.Context,
	task *domain.ResolvedTask,
	processEnv map[string]string,
	root, carrier string,
	settings CacheSettings,
	exec ports.Executor,
	logger ports.Logger,
	opts Options,
	isFinal bool,
) (nextCarrier string, hit bool, err error) {
	var guards cleanup.Guards
	defer guards.Unwind(&err)

	logger.Info("starting task " + task.Name.String())

	// Phase 1: compute key.
	key, err := cachekey.DeriveOne(*task, processEnv, root, carrier)
	if err != nil {
		return carrier, false, fielderr.With(fielderr.Wrap(err, "failed to compute cache key"), "task_name", task.Name.String())
	}
	tag := settings.DockerRepo + ":" + key

	forced := opts.ForceAll || opts.Force[task.Name.String()]

	// Phase 2: cache probe.
	if task.Cache && !forced {
		if next, ok, probeErr := probeCache(ctx, tag, settings, exec); probeErr != nil {
			return carrier, false, probeErr
		} else if ok {
			logger.Info("cache hit for task " + task.Name.String())
			return next, true, nil
		}
	}

	if isCancelled(opts) {
		return carrier, false, ErrCancelled
	}

	// Phase 3: ensure carrier present.
	if err := ensurePresent(ctx, carrier, exec); err != nil {
		return carrier, false, fielderr.Wrap(err, "failed to pull carrier image")
	}

	env := buildContainerEnv(task, processEnv)

	// Phase 4: create container.
	containerID, err := exec.Create(ctx, carrier, task, env)
	if err != nil {
		return carrier, false, fielderr.With(fielderr.Wrap(err, "failed to create container"), "task_name", task.Name.String())
	}
	guards.Add(bestEffort(logger, "remove container", func() error { return exec.Remove(context.Background(), containerID) }))

	// Phase 5: copy inputs.
	if len(task.InputPaths) > 0 {
		if err := copyInputs(ctx, exec, containerID, task, root); err != nil {
			return carrier, false, fielderr.Wrap(err, "failed to copy inputs into container")
		}
	}

	// Phase 6: execute command.
	exitCode, startErr, cancelled := runCommand(ctx, exec, containerID, logger)
	if cancelled {
		return carrier, false, ErrCancelled
	}
	if startErr != nil {
		return carrier, false, fielderr.With(fielderr.Wrap(startErr, "failed to start container"), "task_name", task.Name.String())
	}

	destRoot := root
	if opts.OutputDir != "" {
		destRoot = opts.OutputDir
	}

	if exitCode != 0 {
		_ = copyOutputs(ctx, exec, containerID, task.OutputPathsOnFailure, destRoot, logger)
		return carrier, false, fielderr.With(
			fielderr.New("task command failed"), "task_name", task.Name.String(),
		)
	}

	// Phase 7: commit & copy outputs.
	committed := !isFinal || task.Cache
	if committed {
		if err := exec.Commit(ctx, containerID, tag); err != nil {
			return carrier, false, fielderr.Wrap(err, "failed to commit container")
		}
		if !task.Cache || !settings.WriteLocalCache {
			guards.Add(bestEffort(logger, "untag local image", func() error { return exec.DeleteLocal(context.Background(), tag) }))
		}
	}

	if err := copyOutputs(ctx, exec, containerID, task.OutputPaths, destRoot, logger); err != nil {
		return carrier, false, fielderr.Wrap(err, "failed to copy outputs out of container")
	}

	// Phase 8: remote cache write.
	if task.Cache && committed && settings.WriteRemoteCache {
		if err := exec.Push(ctx, tag); err != nil {
			logger.Warn("remote cache push failed for " + task.Name.String() + ": " + err.Error())
		}
	}

	// Phase 9: teardown happens via the deferred guards.Unwind above.
	if !task.Cache {
		return carrier, false, nil
	}
	if !committed {
		return carrier, false, nil
	}
	return tag, false, nil
}

func probeCache(ctx context.Context, tag string, settings CacheSettings, exec ports.Executor) (string, bool, error) {
	if settings.ReadLocalCache {
		ok, err := exec.ImageExistsLocal(ctx, tag)
		if err != nil {
			return "", false, fielderr.Wrap(err, "failed to check local cache")
		}
		if ok {
			return tag, true, nil
		}
	}
	if settings.ReadRemoteCache {
		ok, err := exec.ImageExistsRemote(ctx, tag)
		if err != nil {
			return "", false, fielderr.Wrap(err, "failed to check remote cache")
		}
		if ok {
			if err := exec.Pull(ctx, tag); err != nil {
				return "", false, fielderr.Wrap(err, "failed to pull cached image")
			}
			return tag, true, nil
		}
	}
	return "", false, nil
}

func ensurePresent(ctx context.Context, image string, exec ports.Executor) error {
	ok, err := exec.ImageExistsLocal(ctx, image)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return exec.Pull(ctx, image)
}

func buildContainerEnv(task *domain.ResolvedTask, processEnv map[string]string) []string {
	env := make([]string, 0, len(task.Environment))
	for name, binding := range task.Environment {
		env = append(env, name+"="+domain.EffectiveValue(binding, name, processEnv))
	}
	return env
}

func copyInputs(ctx context.Context, exec ports.Executor, containerID string, task *domain.ResolvedTask, root string) error {
	entries, err := pathcollector.Collect(root, task.InputPaths, task.ExcludedInputPaths)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- exec.CopyIn(ctx, containerID, task.Location, pr)
	}()

	buildErr := tarstream.BuildFromEntries(pw, entries)
	_ = pw.Close()
	copyErr := <-errc
	if buildErr != nil {
		return buildErr
	}
	return copyErr
}

func copyOutputs(ctx context.Context, exec ports.Executor, containerID string, outputs []string, destRoot string, logger ports.Logger) error {
	for _, output := range outputs {
		if err := copyOneOutput(ctx, exec, containerID, output, destRoot, logger); err != nil {
			return err
		}
	}
	return nil
}

func copyOneOutput(ctx context.Context, exec ports.Executor, containerID, containerPath, destRoot string, logger ports.Logger) (err error) {
	stagingDir := filepath.Join(os.TempDir(), "toast-output-"+uuid.NewString())
	var guards cleanup.Guards
	guards.Add(bestEffort(logger, "remove staging directory", func() error { return os.RemoveAll(stagingDir) }))
	defer guards.Unwind(&err)

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- exec.CopyOut(ctx, containerID, containerPath, pw)
		_ = pw.Close()
	}()

	if err := tarstream.Extract(pr, stagingDir); err != nil {
		return err
	}
	if copyErr := <-errc; copyErr != nil {
		return copyErr
	}

	return tarstream.AtomicMove(filepath.Join(stagingDir, filepath.Base(containerPath)), filepath.Join(destRoot, containerPath))
}
