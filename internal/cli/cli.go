// Package cli wires the revbench commands: the benchmark runner and the
// live webhook review bot.
package cli

import (
	"github.com/spf13/cobra"
)

// VersionInfo carries build-time identity, set via ldflags
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application with all wired dependencies
type App struct {
	rootCmd *cobra.Command

	// configRoot is where .revbench.yaml is looked up
	configRoot string
	verbose    bool

	versionInfo VersionInfo
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	app.rootCmd.AddCommand(
		NewEvalCmd(app),
		NewServeCmd(app),
		NewVersionCmd(app),
	)
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the build identity for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "revbench",
		Short: "Benchmark and live bot for agentic merge request review",
		Long: `revbench provisions synthetic merge requests with seeded flaws, drives a
two-stage agent review over them, and grades the outcome by re-running each
scenario's tests. The same review engine also serves live MRs via webhooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVarP(&a.configRoot, "config-root", "C", ".",
		"Directory containing .revbench.yaml")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"Verbose event output")
}
