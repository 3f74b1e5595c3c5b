package commands

import (
	"github.com/spf13/cobra"

	"github.com/toastbuild/toast/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Run the named tasks (or the toastfile's default)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTasks(cmd, args)
		},
	}

	return cmd
}

// runTasks resolves the persistent and run-specific flags into an
// app.RunOptions and drives the engine, shared by both `toast run ...`
// and the bare `toast ...` invocation.
func (c *CLI) runTasks(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	configFile, _ := cmd.Flags().GetString("config-file")
	dockerCLI, _ := cmd.Flags().GetString("docker-cli")
	dockerRepo, _ := cmd.Flags().GetString("docker-repo")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	force, _ := cmd.Flags().GetStringSlice("force")
	forceAll, _ := cmd.Flags().GetBool("force-all")
	shell, _ := cmd.Flags().GetBool("shell")

	overrides := app.Overrides{
		DockerCLI:  dockerCLI,
		DockerRepo: dockerRepo,
	}
	if cmd.Flags().Changed("read-local-cache") {
		v, _ := cmd.Flags().GetBool("read-local-cache")
		overrides.ReadLocalCache = &v
	}
	if cmd.Flags().Changed("write-local-cache") {
		v, _ := cmd.Flags().GetBool("write-local-cache")
		overrides.WriteLocalCache = &v
	}
	if cmd.Flags().Changed("read-remote-cache") {
		v, _ := cmd.Flags().GetBool("read-remote-cache")
		overrides.ReadRemoteCache = &v
	}
	if cmd.Flags().Changed("write-remote-cache") {
		v, _ := cmd.Flags().GetBool("write-remote-cache")
		overrides.WriteRemoteCache = &v
	}

	_, err := c.app.Run(cmd.Context(), app.RunOptions{
		ToastfilePath: file,
		ConfigPath:    configFile,
		OutputDir:     outputDir,
		Roots:         args,
		Force:         force,
		ForceAll:      forceAll,
		Overrides:     overrides,
		Shell:         shell,
	})
	return err
}
