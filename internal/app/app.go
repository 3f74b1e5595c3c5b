// Package app wires the adapters and engine packages into the two
// operations the CLI exposes: running a schedule of tasks, and listing the
// tasks a toastfile declares.
package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/toastbuild/toast/internal/adapters/config"
	"github.com/toastbuild/toast/internal/adapters/dockerexec"
	"github.com/toastbuild/toast/internal/adapters/signalctl"
	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/core/ports"
	"github.com/toastbuild/toast/internal/engine/runloop"
	"github.com/toastbuild/toast/internal/engine/scheduler"
	"github.com/toastbuild/toast/internal/fielderr"
)

// RunOptions carries every per-invocation input the run command accepts.
type RunOptions struct {
	// ToastfilePath locates the toastfile to load; defaults to "toast.yaml".
	ToastfilePath string
	// ConfigPath locates the separate cache-configuration file; defaults
	// to "toast_config.yaml".
	ConfigPath string
	// OutputDir overrides the host directory output paths are written
	// beneath; empty means the toastfile's own directory.
	OutputDir string
	// Roots are the task names requested on the command line; empty
	// defers to the toastfile's default task, or every task.
	Roots []string
	// Force names tasks whose cache reads are bypassed for this run
	// (spec §4.4 "Transformation for --force"). A forced task still
	// writes its cache on success; it only matters for tasks the
	// schedule already reaches through Roots — naming a task here does
	// not add it to the schedule.
	Force []string
	// ForceAll bypasses cache reads for every task in the schedule.
	ForceAll bool
	// Overrides carries the cache-related CLI flags, layered onto the
	// configuration file by BuildSettings.
	Overrides Overrides
	// Shell, if true, drops into an interactive shell in the final
	// carrier image once the run loop terminates (spec's `--shell`
	// collaborator flag), inheriting the calling process's standard
	// streams.
	Shell bool
}

// App wires the adapters and engine together behind a single entry point.
type App struct {
	Logger ports.Logger
}

// New constructs an App that logs through logger.
func New(logger ports.Logger) *App {
	return &App{Logger: logger}
}

// Run loads opts.ToastfilePath, resolves the requested tasks into a
// schedule, and drives it to completion through the run loop, honoring
// SIGINT/SIGTERM cancellation for the duration of the call.
func (a *App) Run(ctx context.Context, opts RunOptions) (runloop.Result, error) {
	toastfilePath := opts.ToastfilePath
	if toastfilePath == "" {
		toastfilePath = "toast.yaml"
	}

	tf, err := config.LoadToastfile(toastfilePath)
	if err != nil {
		return runloop.Result{}, err
	}
	if err := tf.Validate(); err != nil {
		return runloop.Result{}, err
	}

	settings, err := a.buildSettings(opts)
	if err != nil {
		return runloop.Result{}, err
	}

	processEnv := processEnviron()

	roots, err := scheduler.ResolveRoots(tf, opts.Roots)
	if err != nil {
		return runloop.Result{}, err
	}
	schedule, err := scheduler.BuildSchedule(tf, roots, processEnv)
	if err != nil {
		return runloop.Result{}, err
	}

	root, err := filepath.Abs(filepath.Dir(toastfilePath))
	if err != nil {
		return runloop.Result{}, fielderr.Wrap(err, "failed to resolve toastfile directory")
	}
	outputDir := opts.OutputDir
	if outputDir != "" {
		outputDir, err = filepath.Abs(outputDir)
		if err != nil {
			return runloop.Result{}, fielderr.Wrap(err, "failed to resolve output directory")
		}
	}

	runCtx, cancel := signalctl.Install(ctx)
	defer cancel()

	dockerExec := dockerexec.New(settings.DockerCLI, a.Logger)

	force := make(map[string]bool, len(opts.Force))
	for _, name := range opts.Force {
		force[name] = true
	}

	var shellHook func(string, *domain.ResolvedTask) error
	if opts.Shell {
		shellHook = shellDropIn(runCtx, settings.DockerCLI, a.Logger)
	}

	return runloop.Run(runCtx, schedule, processEnv, root, tf.Image, runloop.CacheSettings{
		DockerRepo:       settings.DockerRepo,
		ReadLocalCache:   settings.ReadLocalCache,
		WriteLocalCache:  settings.WriteLocalCache,
		ReadRemoteCache:  settings.ReadRemoteCache,
		WriteRemoteCache: settings.WriteRemoteCache,
	}, dockerExec, a.Logger, runloop.Options{
		Force:     force,
		ForceAll:  opts.ForceAll,
		OutputDir: outputDir,
		Cancelled: func() bool { return signalctl.Cancelled() },
		ShellHook: shellHook,
	})
}

// shellDropIn builds the run loop's shell-drop-in hook: an interactive
// container started from the final carrier image, inheriting the
// calling process's standard streams, with the last scheduled task's
// mounts, ports, user, and working directory (spec §4.6 "Shell
// drop-in (external collaborator)"). The drop-in shell process itself
// — what runs once attached — is the external collaborator spec §1
// excludes from this engine's scope; this hook only establishes the
// container the collaborator runs inside.
func shellDropIn(ctx context.Context, dockerCLI string, logger ports.Logger) func(string, *domain.ResolvedTask) error {
	return func(carrierImage string, lastTask *domain.ResolvedTask) error {
		if lastTask == nil {
			return nil
		}

		args := []string{"run", "--rm", "-it", "--workdir", lastTask.Location}
		for _, m := range lastTask.MountPaths {
			spec := m.Host + ":" + m.Container
			if lastTask.MountReadonly {
				spec += ":ro"
			}
			args = append(args, "--volume", spec)
		}
		for _, p := range lastTask.Ports {
			args = append(args, "--publish", p.Host+":"+p.Container)
		}
		args = append(args, carrierImage, "su", "-", lastTask.User)

		logger.Info("dropping into a shell in " + carrierImage)

		cmd := exec.CommandContext(ctx, dockerCLI, args...) //nolint:gosec // docker_cli is operator-controlled config
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
}

// ListTasks returns the task names declared by the toastfile at path, in
// lexicographic order.
func ListTasks(path string) ([]string, error) {
	tf, err := config.LoadToastfile(path)
	if err != nil {
		return nil, err
	}
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return tf.TaskNames(), nil
}

func (a *App) buildSettings(opts RunOptions) (Settings, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = "toast_config.yaml"
	}
	return BuildSettings(configPath, opts.Overrides)
}

func processEnviron() map[string]string {
	environ := os.Environ()
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		out[name] = value
	}
	return out
}
