// Package dockerexec implements ports.Executor by shelling out to the
// Docker CLI. It treats Docker as an opaque subprocess: every operation
// is one docker invocation, and the only state this package keeps is
// the configured CLI binary name.
package dockerexec

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/core/ports"
	"github.com/toastbuild/toast/internal/fielderr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec against the
// configured Docker CLI binary (default "docker").
type Executor struct {
	cli    string
	logger ports.Logger
}

// New creates an Executor that shells out to cli (e.g. "docker",
// "podman"), wiring container stdout/stderr to logger.
func New(cli string, logger ports.Logger) *Executor {
	if cli == "" {
		cli = "docker"
	}
	return &Executor{cli: cli, logger: logger}
}

func (e *Executor) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.cli, args...) //nolint:gosec // docker_cli and args are operator-controlled config
	out, err := cmd.Output()
	if err != nil {
		return "", commandError(err, args)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) runStreamed(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, e.cli, args...) //nolint:gosec // docker_cli and args are operator-controlled config

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fielderr.Wrap(err, "failed to attach stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fielderr.Wrap(err, "failed to attach stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return commandError(err, args)
	}

	done := make(chan struct{}, 2)
	go func() { streamLines(stdout, e.logger.Info); done <- struct{}{} }()
	go func() { streamLines(stderr, func(line string) { e.logger.Error(fielderr.New(line)) }); done <- struct{}{} }()
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		return commandError(err, args)
	}
	return nil
}

func streamLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}

func commandError(err error, args []string) error {
	wrapped := fielderr.With(fielderr.Wrap(err, "docker command failed"), "args", strings.Join(args, " "))
	if exitErr, ok := err.(*exec.ExitError); ok {
		return fielderr.With(wrapped, "exit_code", exitErr.ExitCode())
	}
	return wrapped
}

// ImageExistsLocal reports whether image is present in the local
// image store.
func (e *Executor) ImageExistsLocal(ctx context.Context, image string) (bool, error) {
	_, err := e.run(ctx, "image", "inspect", image)
	if err == nil {
		return true, nil
	}
	return false, nil
}

// ImageExistsRemote reports whether image is present in its remote
// registry, without pulling it.
func (e *Executor) ImageExistsRemote(ctx context.Context, image string) (bool, error) {
	_, err := e.run(ctx, "manifest", "inspect", image)
	if err == nil {
		return true, nil
	}
	return false, nil
}

// Pull fetches image from its remote registry into the local store.
func (e *Executor) Pull(ctx context.Context, image string) error {
	return e.runStreamed(ctx, "pull", image)
}

// Push uploads image from the local store to its remote registry.
func (e *Executor) Push(ctx context.Context, image string) error {
	return e.runStreamed(ctx, "push", image)
}

// Tag assigns target as an additional name for source.
func (e *Executor) Tag(ctx context.Context, source, target string) error {
	_, err := e.run(ctx, "tag", source, target)
	return err
}

// DeleteLocal removes image from the local image store.
func (e *Executor) DeleteLocal(ctx context.Context, image string) error {
	_, err := e.run(ctx, "rmi", image)
	return err
}

// Create instantiates a container from image for task and returns its
// container ID. The container's command is "su -c <prefix>\n<command>
// <user>" — the task's declared user is applied by su inside the
// container, not by a docker --user flag, since su itself needs to
// start as root.
func (e *Executor) Create(ctx context.Context, image string, task *domain.ResolvedTask, env []string) (string, error) {
	args := []string{"create", "--workdir", task.Location}

	for _, kv := range env {
		args = append(args, "--env", kv)
	}
	for _, m := range task.MountPaths {
		spec := m.Host + ":" + m.Container
		if task.MountReadonly {
			spec += ":ro"
		}
		args = append(args, "--volume", spec)
	}
	for _, p := range task.Ports {
		args = append(args, "--publish", p.Host+":"+p.Container)
	}
	args = append(args, task.ExtraDockerArguments...)
	args = append(args, image)
	args = append(args, "su", "-c", suCommand(task), task.User)

	return e.run(ctx, args...)
}

// suCommand builds the "su -c" command string a task's container runs:
// its command prefix and command joined by a newline, per spec.
func suCommand(task *domain.ResolvedTask) string {
	if task.CommandPrefix == "" {
		return task.Command
	}
	return task.CommandPrefix + "\n" + task.Command
}

// Start begins executing the container's command and blocks until it
// exits, returning the command's exit code.
func (e *Executor) Start(ctx context.Context, containerID string) (int, error) {
	if err := e.runStreamed(ctx, "start", "--attach", containerID); err != nil {
		if exitErr, ok := rootExitError(err); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

func rootExitError(err error) (*exec.ExitError, bool) {
	var target *exec.ExitError
	cause := err
	for cause != nil {
		if ee, ok := cause.(*exec.ExitError); ok {
			target = ee
			break
		}
		u, ok := cause.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cause = u.Unwrap()
	}
	return target, target != nil
}

// Stop sends a polite shutdown signal to a running container.
func (e *Executor) Stop(ctx context.Context, containerID string) error {
	_, err := e.run(ctx, "stop", containerID)
	return err
}

// CopyIn streams the tar archive read from r into containerPath inside
// the container, via "docker cp -".
func (e *Executor) CopyIn(ctx context.Context, containerID, containerPath string, r io.Reader) error {
	cmd := exec.CommandContext(ctx, e.cli, "cp", "-", containerID+":"+containerPath) //nolint:gosec // docker_cli is operator-controlled config
	cmd.Stdin = r
	if out, err := cmd.CombinedOutput(); err != nil {
		return fielderr.With(commandError(err, cmd.Args), "output", string(out))
	}
	return nil
}

// CopyOut streams containerPath out of the container as a tar archive
// written to w, via "docker cp -".
func (e *Executor) CopyOut(ctx context.Context, containerID, containerPath string, w io.Writer) error {
	cmd := exec.CommandContext(ctx, e.cli, "cp", containerID+":"+containerPath, "-") //nolint:gosec // docker_cli is operator-controlled config
	cmd.Stdout = w
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fielderr.With(commandError(err, cmd.Args), "stderr", stderr.String())
	}
	return nil
}

// Commit captures the container's current filesystem state as image.
func (e *Executor) Commit(ctx context.Context, containerID, image string) error {
	_, err := e.run(ctx, "commit", containerID, image)
	return err
}

// Remove deletes the container.
func (e *Executor) Remove(ctx context.Context, containerID string) error {
	_, err := e.run(ctx, "rm", "-f", containerID)
	return err
}
