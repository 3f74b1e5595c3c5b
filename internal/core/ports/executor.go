// Package ports defines the interfaces the run loop depends on without
// knowing about their concrete implementation. Per the design note on
// polymorphism, Executor is the only port with more than one real
// implementation candidate in mind (Docker today, something else
// later); everything else the engine needs — hashing, path collection,
// config parsing — is a concrete package, not an interface, because
// there is exactly one way Toast does those things.
package ports

import (
	"context"
	"io"

	"github.com/toastbuild/toast/internal/core/domain"
)

// Executor defines the container operations the run loop drives a task
// through. Every method treats the container/image as an opaque string
// handle; Toast never inspects Docker's own object model beyond that.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// ImageExistsLocal reports whether image is present in the local
	// image store.
	ImageExistsLocal(ctx context.Context, image string) (bool, error)

	// ImageExistsRemote reports whether image is present in its remote
	// registry, without pulling it.
	ImageExistsRemote(ctx context.Context, image string) (bool, error)

	// Pull fetches image from its remote registry into the local store.
	Pull(ctx context.Context, image string) error

	// Push uploads image from the local store to its remote registry.
	Push(ctx context.Context, image string) error

	// Tag assigns target as an additional name for the image currently
	// known as source.
	Tag(ctx context.Context, source, target string) error

	// DeleteLocal removes image from the local image store.
	DeleteLocal(ctx context.Context, image string) error

	// Create instantiates (but does not start) a container from image,
	// configured to run task, and returns its container ID.
	Create(ctx context.Context, image string, task *domain.ResolvedTask, env []string) (containerID string, err error)

	// Start begins executing the container's command and blocks until
	// it exits, returning the command's exit code.
	Start(ctx context.Context, containerID string) (exitCode int, err error)

	// Stop sends a polite shutdown signal to a running container,
	// waiting up to the container's stop-timeout before giving up.
	Stop(ctx context.Context, containerID string) error

	// CopyIn streams a tar archive (read from r) into containerPath
	// inside the container.
	CopyIn(ctx context.Context, containerID, containerPath string, r io.Reader) error

	// CopyOut streams containerPath out of the container as a tar
	// archive written to w.
	CopyOut(ctx context.Context, containerID, containerPath string, w io.Writer) error

	// Commit captures the container's current filesystem state as a new
	// image, tagged as image.
	Commit(ctx context.Context, containerID, image string) error

	// Remove deletes the container, discarding its filesystem.
	Remove(ctx context.Context, containerID string) error
}
