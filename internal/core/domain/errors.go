package domain

import "github.com/toastbuild/toast/internal/fielderr"

var (
	// ErrTaskAlreadyExists is returned when a toastfile declares two tasks
	// with the same name.
	ErrTaskAlreadyExists = fielderr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency
	// that doesn't resolve to a task in the same toastfile.
	ErrMissingDependency = fielderr.New("missing dependency")

	// ErrCycleDetected is returned when the task dependency graph contains
	// a cycle.
	ErrCycleDetected = fielderr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task name is not present
	// in the graph.
	ErrTaskNotFound = fielderr.New("task not found")

	// ErrCacheableTaskHasPorts is returned when a cacheable task declares
	// ports, which introduce unmodeled external effects (spec §3).
	ErrCacheableTaskHasPorts = fielderr.New("cacheable task must not declare ports")

	// ErrCacheableTaskHasMounts is returned when a cacheable task declares
	// mount paths, which introduce unmodeled external effects (spec §3).
	ErrCacheableTaskHasMounts = fielderr.New("cacheable task must not declare mount paths")

	// ErrExcludedPathNotContained is returned when excluded_input_paths
	// contains an entry that does not lie under input_paths.
	ErrExcludedPathNotContained = fielderr.New("excluded input path is not contained by any input path")

	// ErrRequiredEnvironmentMissing is returned when a task declares a
	// required environment variable (no default) that the process
	// environment does not provide.
	ErrRequiredEnvironmentMissing = fielderr.New("required environment variable has no value")

	// ErrNoTasksSpecified is returned when neither explicit roots nor a
	// toastfile default task are available to build a schedule from.
	ErrNoTasksSpecified = fielderr.New("no tasks specified and no default task configured")

	// ErrUnknownTask is returned when a CLI-specified root task name does
	// not exist in the toastfile.
	ErrUnknownTask = fielderr.New("unknown task")
)
