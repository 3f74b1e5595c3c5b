package domain

import (
	"sort"
	"strings"
	"unique"

	"github.com/toastbuild/toast/internal/fielderr"
)

// Default values applied when a toastfile or task omits a field (spec §3).
const (
	DefaultLocation = "/scratch"
	DefaultUser     = "root"
)

// InternedString wraps a unique.Handle[string]. A resolved task's name is
// looked up repeatedly across the scheduler, the cache-key chain, and every
// run-loop phase, so ResolvedTask carries it interned rather than as a bare
// string — the same reasoning behind the teacher's own
// core/domain.InternedString, which this repo's ResolvedTask.Name field
// (below) exists to consume. Unlike the teacher's copy, this one drops
// MarshalText/UnmarshalText: nothing in this repo serializes a ResolvedTask
// to text, since the YAML boundary (internal/adapters/config) only ever
// reads task names as plain map keys.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// NewInternedStrings interns every element of ss, preserving order.
func NewInternedStrings(ss []string) []InternedString {
	out := make([]InternedString, len(ss))
	for i, s := range ss {
		out[i] = NewInternedString(s)
	}
	return out
}

// String returns the underlying string value.
func (is InternedString) String() string {
	var zero unique.Handle[string]
	if is.h == zero {
		return ""
	}
	return is.h.Value()
}

// Value returns the underlying handle, comparable in O(1).
func (is InternedString) Value() unique.Handle[string] {
	return is.h
}

// EnvBinding is a tagged variant of an environment variable's default: it is
// either Required (no default — the caller's process environment must
// supply a value) or a Default(value). Modeling this as a sum type instead
// of a nullable string keeps "no default" from being confused with
// "default is the empty string" (spec Design Note "Tagged variants").
type EnvBinding struct {
	value    string
	required bool
}

// RequiredEnv constructs a binding with no default.
func RequiredEnv() EnvBinding { return EnvBinding{required: true} }

// DefaultEnv constructs a binding whose default is value.
func DefaultEnv(value string) EnvBinding { return EnvBinding{value: value} }

// Required reports whether the binding has no default.
func (b EnvBinding) Required() bool { return b.required }

// Default returns the declared default value. Valid only when !Required().
func (b EnvBinding) Default() string { return b.value }

// MountPath is a host:container bind mount. A single bare path mounts the
// same path on both sides.
type MountPath struct {
	Host      string
	Container string
}

// PortMapping is a host:container port forward.
type PortMapping struct {
	Host      string
	Container string
}

// Task is a single node of a toastfile's dependency graph, as parsed, with
// task-level overrides left unresolved (nil means "inherit the toastfile
// default").
type Task struct {
	Description          string
	Dependencies         []string
	Cache                bool
	Environment          map[string]EnvBinding
	InputPaths           []string
	ExcludedInputPaths   []string
	OutputPaths          []string
	OutputPathsOnFailure []string
	MountPaths           []MountPath
	MountReadonly        bool
	Ports                []PortMapping
	Location             *string
	User                 *string
	CommandPrefix        *string
	Command              string
	ExtraDockerArguments []string
}

// ResolvedTask is a Task with every default inlined and its name attached.
// It is immutable for the duration of one invocation.
type ResolvedTask struct {
	Name                 InternedString
	Description          string
	Dependencies         []InternedString
	Cache                bool
	Environment          map[string]EnvBinding
	InputPaths           []string
	ExcludedInputPaths   []string
	OutputPaths          []string
	OutputPathsOnFailure []string
	MountPaths           []MountPath
	MountReadonly        bool
	Ports                []PortMapping
	Location             string
	User                 string
	CommandPrefix        string
	Command              string
	ExtraDockerArguments []string
}

// Toastfile is the in-memory representation of a parsed toastfile with
// toastfile-level defaults established. It is immutable once built.
type Toastfile struct {
	Image         string
	Default       string
	Location      string
	User          string
	CommandPrefix string
	Tasks         map[string]*Task
}

// NewToastfile applies toastfile-level defaults to a freshly parsed
// toastfile. Callers must still call Validate before using it.
func NewToastfile(image, dflt, location, user, commandPrefix string, tasks map[string]*Task) *Toastfile {
	if location == "" {
		location = DefaultLocation
	}
	if user == "" {
		user = DefaultUser
	}
	return &Toastfile{
		Image:         image,
		Default:       dflt,
		Location:      location,
		User:          user,
		CommandPrefix: commandPrefix,
		Tasks:         tasks,
	}
}

// TaskNames returns every declared task name in lexicographic order.
func (tf *Toastfile) TaskNames() []string {
	names := make([]string, 0, len(tf.Tasks))
	for name := range tf.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate enforces every toastfile-level invariant in spec §3: the base
// image is present, dependencies resolve, the graph is acyclic, cacheable
// tasks don't declare ports or mounts, and excluded_input_paths is a subset
// of input_paths under lexical containment.
func (tf *Toastfile) Validate() error {
	if tf.Image == "" {
		return fielderr.New("toastfile must declare a base image")
	}

	if tf.Default != "" {
		if _, ok := tf.Tasks[tf.Default]; !ok {
			return fielderr.With(ErrTaskNotFound, "task_name", tf.Default)
		}
	}

	graph, err := NewGraph(tf)
	if err != nil {
		return err
	}
	if err := graph.Validate(); err != nil {
		return err
	}

	for name, task := range tf.Tasks {
		if err := validateTaskInvariants(name, task); err != nil {
			return err
		}
	}

	return nil
}

func validateTaskInvariants(name string, task *Task) error {
	if task.Cache {
		if len(task.Ports) > 0 {
			return fielderr.With(ErrCacheableTaskHasPorts, "task_name", name)
		}
		if len(task.MountPaths) > 0 {
			return fielderr.With(ErrCacheableTaskHasMounts, "task_name", name)
		}
	}

	for _, excluded := range task.ExcludedInputPaths {
		if !containedByAny(task.InputPaths, excluded) {
			return fielderr.With(
				fielderr.With(ErrExcludedPathNotContained, "task_name", name),
				"excluded_path", excluded,
			)
		}
	}

	return nil
}

// containedByAny reports whether excluded lies at or beneath one of the
// lexical roots in inputs (e.g. "src/x.c" is contained by "src").
func containedByAny(inputs []string, excluded string) bool {
	cleanExcluded := cleanRelPath(excluded)
	for _, in := range inputs {
		cleanIn := cleanRelPath(in)
		if cleanExcluded == cleanIn || strings.HasPrefix(cleanExcluded, cleanIn+"/") {
			return true
		}
	}
	return false
}

func cleanRelPath(p string) string {
	return strings.TrimSuffix(strings.TrimPrefix(p, "./"), "/")
}

// Resolve inlines toastfile-level defaults into the named task and checks
// its declared environment bindings against processEnv. The bindings are
// carried into the ResolvedTask unchanged; overrides are applied later,
// per binding, by EffectiveValue. A required binding (no default) that
// processEnv does not supply is a validation failure raised here, before
// any container is created (spec §3 "Resolved Task", §7 "Validation
// errors").
func (tf *Toastfile) Resolve(name string, processEnv map[string]string) (*ResolvedTask, error) {
	task, ok := tf.Tasks[name]
	if !ok {
		return nil, fielderr.With(ErrTaskNotFound, "task_name", name)
	}

	location := tf.Location
	if task.Location != nil {
		location = *task.Location
	}
	user := tf.User
	if task.User != nil {
		user = *task.User
	}
	commandPrefix := tf.CommandPrefix
	if task.CommandPrefix != nil {
		commandPrefix = *task.CommandPrefix
	}

	for envName, binding := range task.Environment {
		if binding.Required() {
			if _, ok := processEnv[envName]; !ok {
				return nil, fielderr.With(
					fielderr.With(ErrRequiredEnvironmentMissing, "task_name", name),
					"variable", envName,
				)
			}
		}
	}

	return &ResolvedTask{
		Name:                 NewInternedString(name),
		Description:          task.Description,
		Dependencies:         NewInternedStrings(task.Dependencies),
		Cache:                task.Cache,
		Environment:          task.Environment,
		InputPaths:           task.InputPaths,
		ExcludedInputPaths:   task.ExcludedInputPaths,
		OutputPaths:          task.OutputPaths,
		OutputPathsOnFailure: task.OutputPathsOnFailure,
		MountPaths:           task.MountPaths,
		MountReadonly:        task.MountReadonly,
		Ports:                task.Ports,
		Location:             location,
		User:                 user,
		CommandPrefix:        commandPrefix,
		Command:              task.Command,
		ExtraDockerArguments: task.ExtraDockerArguments,
	}, nil
}

// EffectiveValue returns the value bound to envName: the caller-provided
// value from processEnv if present, else the declared default. The
// required-without-override case must already have been rejected by
// Resolve before this is called.
func EffectiveValue(binding EnvBinding, name string, processEnv map[string]string) string {
	if v, ok := processEnv[name]; ok {
		return v
	}
	return binding.Default()
}
