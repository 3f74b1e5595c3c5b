package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastbuild/toast/internal/adapters/config"
	"github.com/toastbuild/toast/internal/core/domain"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadToastfile_Success(t *testing.T) {
	path := writeYAML(t, "toast.yaml", `
image: alpine
default: build
tasks:
  lint:
    command: golangci-lint run
  build:
    dependencies: [lint]
    command: go build
    output_paths: [bin/app]
`)

	tf, err := config.LoadToastfile(path)
	require.NoError(t, err)
	require.NoError(t, tf.Validate())

	assert.Equal(t, "alpine", tf.Image)
	assert.Equal(t, "build", tf.Default)
	assert.ElementsMatch(t, []string{"lint", "build"}, tf.TaskNames())
	assert.Equal(t, []string{"lint"}, tf.Tasks["build"].Dependencies)
}

func TestLoadToastfile_UnknownTopLevelKeyRejected(t *testing.T) {
	path := writeYAML(t, "toast.yaml", `
image: alpine
bogus: true
tasks: {}
`)

	_, err := config.LoadToastfile(path)
	require.Error(t, err)
}

func TestLoadToastfile_UnknownTaskKeyRejected(t *testing.T) {
	path := writeYAML(t, "toast.yaml", `
image: alpine
tasks:
  build:
    bogus_field: true
`)

	_, err := config.LoadToastfile(path)
	require.Error(t, err)
}

func TestLoadToastfile_RequiredEnvironmentBinding(t *testing.T) {
	path := writeYAML(t, "toast.yaml", `
image: alpine
tasks:
  deploy:
    environment:
      CLUSTER: null
      REGION: us-east-1
    command: deploy.sh
`)

	tf, err := config.LoadToastfile(path)
	require.NoError(t, err)

	cluster := tf.Tasks["deploy"].Environment["CLUSTER"]
	assert.True(t, cluster.Required())

	region := tf.Tasks["deploy"].Environment["REGION"]
	assert.False(t, region.Required())
	assert.Equal(t, "us-east-1", region.Default())
}

func TestLoadToastfile_MissingFile(t *testing.T) {
	_, err := config.LoadToastfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadToastfile_CacheDefaultsTrue(t *testing.T) {
	path := writeYAML(t, "toast.yaml", `
image: alpine
tasks:
  build:
    command: go build
`)
	tf, err := config.LoadToastfile(path)
	require.NoError(t, err)
	assert.True(t, tf.Tasks["build"].Cache)
}

func TestLoadToastfile_SingleBareMountPathMirrorsBothSides(t *testing.T) {
	path := writeYAML(t, "toast.yaml", `
image: alpine
tasks:
  build:
    mount_paths: ["/cache"]
    command: go build
`)
	tf, err := config.LoadToastfile(path)
	require.NoError(t, err)
	require.Len(t, tf.Tasks["build"].MountPaths, 1)
	assert.Equal(t, domain.MountPath{Host: "/cache", Container: "/cache"}, tf.Tasks["build"].MountPaths[0])
}

func TestLoadCacheConfig_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.LoadCacheConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCacheConfig(), cfg)
}

func TestLoadCacheConfig_OverlaysRecognizedKeys(t *testing.T) {
	path := writeYAML(t, "config.yaml", `
docker_repo: myrepo
write_remote_cache: true
`)

	cfg, err := config.LoadCacheConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "myrepo", cfg.DockerRepo)
	assert.Equal(t, "docker", cfg.DockerCLI)
	assert.True(t, cfg.ReadLocalCache)
	assert.True(t, cfg.WriteLocalCache)
	assert.False(t, cfg.ReadRemoteCache)
	assert.True(t, cfg.WriteRemoteCache)
}

func TestLoadCacheConfig_UnknownKeyRejected(t *testing.T) {
	path := writeYAML(t, "config.yaml", `
bogus: true
`)
	_, err := config.LoadCacheConfig(path)
	require.Error(t, err)
}

func TestLoadCacheConfig_EmptyFileUsesDefaults(t *testing.T) {
	path := writeYAML(t, "config.yaml", "")
	cfg, err := config.LoadCacheConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCacheConfig(), cfg)
}
