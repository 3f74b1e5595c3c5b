// Package dockerexectest provides an in-memory recording fake of
// ports.Executor for run-loop tests that need to assert call ordering
// without shelling out to a real Docker daemon.
package dockerexectest

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/core/ports"
)

var _ ports.Executor = (*Fake)(nil)

// Call records one method invocation and its arguments, in the order
// observed.
type Call struct {
	Method string
	Args   []any
}

// Fake is a recording, in-memory ports.Executor. Its behavior for each
// method is driven by the exported On* fields (plus NextContainerID and
// NextExitCode for Create and Start); a nil field falls back to a no-op
// success.
type Fake struct {
	Calls []Call

	NextContainerID     string
	NextExitCode        int
	OnImageExistsLocal  func(image string) (bool, error)
	OnImageExistsRemote func(image string) (bool, error)
	OnCreate            func(image string, task *domain.ResolvedTask, env []string) (string, error)
	OnStart             func(containerID string) (int, error)
	OnStop              func(containerID string) error
	OnCopyOut           func(containerID, containerPath string, w io.Writer) error
}

// New returns a Fake whose Create calls each synthesize a fresh
// container ID, so tests exercising several containers in one run never
// collide on a shared NextContainerID value.
func New() *Fake {
	return &Fake{}
}

func (f *Fake) record(method string, args ...any) {
	f.Calls = append(f.Calls, Call{Method: method, Args: args})
}

func (f *Fake) ImageExistsLocal(_ context.Context, image string) (bool, error) {
	f.record("ImageExistsLocal", image)
	if f.OnImageExistsLocal != nil {
		return f.OnImageExistsLocal(image)
	}
	return false, nil
}

func (f *Fake) ImageExistsRemote(_ context.Context, image string) (bool, error) {
	f.record("ImageExistsRemote", image)
	if f.OnImageExistsRemote != nil {
		return f.OnImageExistsRemote(image)
	}
	return false, nil
}

func (f *Fake) Pull(_ context.Context, image string) error {
	f.record("Pull", image)
	return nil
}

func (f *Fake) Push(_ context.Context, image string) error {
	f.record("Push", image)
	return nil
}

func (f *Fake) Tag(_ context.Context, source, target string) error {
	f.record("Tag", source, target)
	return nil
}

func (f *Fake) DeleteLocal(_ context.Context, image string) error {
	f.record("DeleteLocal", image)
	return nil
}

func (f *Fake) Create(_ context.Context, image string, task *domain.ResolvedTask, env []string) (string, error) {
	f.record("Create", image, task, env)
	if f.OnCreate != nil {
		return f.OnCreate(image, task, env)
	}
	if f.NextContainerID != "" {
		return f.NextContainerID, nil
	}
	return "fake-" + uuid.NewString(), nil
}

func (f *Fake) Start(_ context.Context, containerID string) (int, error) {
	f.record("Start", containerID)
	if f.OnStart != nil {
		return f.OnStart(containerID)
	}
	return f.NextExitCode, nil
}

func (f *Fake) Stop(_ context.Context, containerID string) error {
	f.record("Stop", containerID)
	if f.OnStop != nil {
		return f.OnStop(containerID)
	}
	return nil
}

func (f *Fake) CopyIn(_ context.Context, containerID, containerPath string, r io.Reader) error {
	f.record("CopyIn", containerID, containerPath)
	_, err := io.Copy(io.Discard, r)
	return err
}

func (f *Fake) CopyOut(_ context.Context, containerID, containerPath string, w io.Writer) error {
	f.record("CopyOut", containerID, containerPath)
	if f.OnCopyOut != nil {
		return f.OnCopyOut(containerID, containerPath, w)
	}
	return nil
}

func (f *Fake) Commit(_ context.Context, containerID, image string) error {
	f.record("Commit", containerID, image)
	return nil
}

func (f *Fake) Remove(_ context.Context, containerID string) error {
	f.record("Remove", containerID)
	return nil
}
