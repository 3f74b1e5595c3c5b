// Package config loads a toastfile and its companion cache-configuration
// file from YAML, translating each into the immutable types the engine
// consumes.
package config

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toastbuild/toast/internal/core/domain"
	"github.com/toastbuild/toast/internal/fielderr"
)

// LoadToastfile reads and parses the toastfile at path, translating it
// into a domain.Toastfile. Unknown top-level or task-level keys are a
// validation error (spec §6), enforced here via yaml.v3's strict
// decoding rather than in the domain package, which never sees raw
// YAML. Callers must still call Validate on the result.
func LoadToastfile(path string) (*domain.Toastfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-provided config
	if err != nil {
		return nil, fielderr.With(fielderr.Wrap(err, "failed to read toastfile"), "path", path)
	}

	var dto toastfileDTO
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil {
		return nil, fielderr.With(fielderr.Wrap(err, "failed to parse toastfile"), "path", path)
	}

	tasks := make(map[string]*domain.Task, len(dto.Tasks))
	for name, t := range dto.Tasks {
		tasks[name] = toDomainTask(t)
	}

	return domain.NewToastfile(dto.Image, dto.Default, dto.Location, dto.User, dto.CommandPrefix, tasks), nil
}

func toDomainTask(t taskDTO) *domain.Task {
	env := make(map[string]domain.EnvBinding, len(t.Environment))
	for name, b := range t.Environment {
		if b == nil || b.required {
			env[name] = domain.RequiredEnv()
		} else {
			env[name] = domain.DefaultEnv(b.value)
		}
	}

	mounts := make([]domain.MountPath, len(t.MountPaths))
	for i, m := range t.MountPaths {
		mounts[i] = domain.MountPath{Host: m.Host, Container: m.Container}
	}

	ports := make([]domain.PortMapping, len(t.Ports))
	for i, p := range t.Ports {
		ports[i] = domain.PortMapping{Host: p.Host, Container: p.Container}
	}

	cache := true
	if t.Cache != nil {
		cache = *t.Cache
	}

	return &domain.Task{
		Description:          t.Description,
		Dependencies:         t.Dependencies,
		Cache:                cache,
		Environment:          env,
		InputPaths:           t.InputPaths,
		ExcludedInputPaths:   t.ExcludedInputPaths,
		OutputPaths:          t.OutputPaths,
		OutputPathsOnFailure: t.OutputPathsOnFailure,
		MountPaths:           mounts,
		MountReadonly:        t.MountReadonly,
		Ports:                ports,
		Location:             t.Location,
		User:                 t.User,
		CommandPrefix:        t.CommandPrefix,
		Command:              t.Command,
		ExtraDockerArguments: t.ExtraDockerArguments,
	}
}

// CacheConfig holds the resolved settings of the separate configuration
// file (spec §6): which container CLI and image repo to use, and the
// four independent cache read/write toggles.
type CacheConfig struct {
	DockerRepo       string
	DockerCLI        string
	ReadLocalCache   bool
	WriteLocalCache  bool
	ReadRemoteCache  bool
	WriteRemoteCache bool
}

// DefaultCacheConfig returns the configuration in effect when no
// configuration file is present or a recognized key is omitted (spec
// §6: docker_repo "toast", docker_cli "docker", local cache read/write
// both true, remote cache read/write both false).
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		DockerRepo:       "toast",
		DockerCLI:        "docker",
		ReadLocalCache:   true,
		WriteLocalCache:  true,
		ReadRemoteCache:  false,
		WriteRemoteCache: false,
	}
}

// LoadCacheConfig reads the configuration file at path, if it exists,
// overlaying recognized keys onto DefaultCacheConfig. A missing file is
// not an error: every key is optional.
func LoadCacheConfig(path string) (*CacheConfig, error) {
	cfg := DefaultCacheConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is operator-provided config
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fielderr.With(fielderr.Wrap(err, "failed to read configuration file"), "path", path)
	}

	var dto cacheConfigDTO
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil && err != io.EOF {
		return nil, fielderr.With(fielderr.Wrap(err, "failed to parse configuration file"), "path", path)
	}

	if dto.DockerRepo != nil {
		cfg.DockerRepo = *dto.DockerRepo
	}
	if dto.DockerCLI != nil {
		cfg.DockerCLI = *dto.DockerCLI
	}
	if dto.ReadLocalCache != nil {
		cfg.ReadLocalCache = *dto.ReadLocalCache
	}
	if dto.WriteLocalCache != nil {
		cfg.WriteLocalCache = *dto.WriteLocalCache
	}
	if dto.ReadRemoteCache != nil {
		cfg.ReadRemoteCache = *dto.ReadRemoteCache
	}
	if dto.WriteRemoteCache != nil {
		cfg.WriteRemoteCache = *dto.WriteRemoteCache
	}

	return cfg, nil
}
