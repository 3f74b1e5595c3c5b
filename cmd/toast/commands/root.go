// Package commands implements the CLI commands for the toast build tool.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/toastbuild/toast/internal/app"
	"github.com/toastbuild/toast/internal/build"
)

// CLI represents the command line interface for toast.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "toast [tasks...]",
		Short:         "Run containerized tasks from a toastfile",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("file", "f", "toast.yaml", "Path to the toastfile")
	rootCmd.PersistentFlags().String("config-file", "toast_config.yaml", "Path to the cache configuration file")
	rootCmd.PersistentFlags().String("docker-cli", "", "Override the configured container CLI binary")
	rootCmd.PersistentFlags().String("docker-repo", "", "Override the configured cache image repository")
	rootCmd.PersistentFlags().Bool("read-local-cache", true, "Consult the local cache before running a task")
	rootCmd.PersistentFlags().Bool("write-local-cache", true, "Commit cacheable task results into the local cache")
	rootCmd.PersistentFlags().Bool("read-remote-cache", false, "Consult the remote cache before running a task")
	rootCmd.PersistentFlags().Bool("write-remote-cache", false, "Push cacheable task results to the remote cache")
	rootCmd.PersistentFlags().StringSlice("force", nil, "Bypass the cache for the named task, but still write it on success")
	rootCmd.PersistentFlags().Bool("force-all", false, "Bypass the cache for every task in the schedule")
	rootCmd.PersistentFlags().String("output-dir", "", "Write output paths beneath this host directory instead of the toastfile's own")
	rootCmd.PersistentFlags().Bool("shell", false, "Drop into a shell in the final task's image once the run terminates, success or failure")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	rootCmd.RunE = c.runDefault

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOut redirects the root command's (and every subcommand's) standard
// output. Used for testing.
func (c *CLI) SetOut(w io.Writer) {
	c.rootCmd.SetOut(w)
}

// runDefault lets `toast [tasks...]` run tasks without the explicit `run`
// subcommand, mirroring the original CLI's bare invocation (spec §7).
func (c *CLI) runDefault(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return c.runTasks(cmd, args)
}
