package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastbuild/toast/cmd/toast/commands"
	"github.com/toastbuild/toast/internal/adapters/logger"
	"github.com/toastbuild/toast/internal/app"
)

func writeToastfile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "toast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCLI_List(t *testing.T) {
	path := writeToastfile(t, `
image: alpine
tasks:
  lint:
    command: golangci-lint run
  build:
    dependencies: [lint]
    command: go build
`)

	cli := commands.New(app.New(logger.New()))
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{"list", "--file", path})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "build\nlint\n", out.String())
}

func TestCLI_List_InvalidToastfile(t *testing.T) {
	path := writeToastfile(t, `
image: alpine
default: missing
tasks: {}
`)

	cli := commands.New(app.New(logger.New()))
	cli.SetArgs([]string{"list", "--file", path})

	require.Error(t, cli.Execute(context.Background()))
}

func TestCLI_Run_NoTasksShowsHelp(t *testing.T) {
	cli := commands.New(app.New(logger.New()))
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "Run containerized tasks from a toastfile")
}

func TestCLI_Help(t *testing.T) {
	cli := commands.New(app.New(logger.New()))
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{"--help"})

	require.NoError(t, cli.Execute(context.Background()))
}

func TestCLI_Version(t *testing.T) {
	cli := commands.New(app.New(logger.New()))
	var out bytes.Buffer
	cli.SetOut(&out)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "dev")
}
