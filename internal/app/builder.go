package app

import "github.com/toastbuild/toast/internal/adapters/config"

// Settings is the fully-resolved configuration a run executes under: the
// separate cache-configuration file overlaid with whatever the CLI flags
// explicitly set. CLI flags always win over the file, and the file always
// wins over config.DefaultCacheConfig.
type Settings struct {
	DockerCLI        string
	DockerRepo       string
	ReadLocalCache   bool
	WriteLocalCache  bool
	ReadRemoteCache  bool
	WriteRemoteCache bool
}

// Overrides holds the subset of Settings the CLI layer may override. A nil
// bool pointer means "the flag was not passed, defer to the config file."
type Overrides struct {
	DockerCLI        string
	DockerRepo       string
	ReadLocalCache   *bool
	WriteLocalCache  *bool
	ReadRemoteCache  *bool
	WriteRemoteCache *bool
}

// BuildSettings loads the cache-configuration file at configPath (falling
// back to config.DefaultCacheConfig when absent) and overlays ov on top of
// it.
func BuildSettings(configPath string, ov Overrides) (Settings, error) {
	cfg, err := config.LoadCacheConfig(configPath)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		DockerCLI:        cfg.DockerCLI,
		DockerRepo:       cfg.DockerRepo,
		ReadLocalCache:   cfg.ReadLocalCache,
		WriteLocalCache:  cfg.WriteLocalCache,
		ReadRemoteCache:  cfg.ReadRemoteCache,
		WriteRemoteCache: cfg.WriteRemoteCache,
	}

	if ov.DockerCLI != "" {
		settings.DockerCLI = ov.DockerCLI
	}
	if ov.DockerRepo != "" {
		settings.DockerRepo = ov.DockerRepo
	}
	if ov.ReadLocalCache != nil {
		settings.ReadLocalCache = *ov.ReadLocalCache
	}
	if ov.WriteLocalCache != nil {
		settings.WriteLocalCache = *ov.WriteLocalCache
	}
	if ov.ReadRemoteCache != nil {
		settings.ReadRemoteCache = *ov.ReadRemoteCache
	}
	if ov.WriteRemoteCache != nil {
		settings.WriteRemoteCache = *ov.WriteRemoteCache
	}

	return settings, nil
}
