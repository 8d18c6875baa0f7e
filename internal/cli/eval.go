package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/revbench/revbench/internal/eval"
	"github.com/revbench/revbench/internal/events"
	"github.com/revbench/revbench/internal/provision"
	"github.com/revbench/revbench/internal/review"
	"github.com/revbench/revbench/internal/scenario"
	"github.com/revbench/revbench/internal/testrunner"
)

// NewEvalCmd creates the eval command
func NewEvalCmd(app *App) *cobra.Command {
	var (
		scenariosDir string
		offline      bool
		keepWorkdirs bool
		skipCleanup  bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the review benchmark over all scenarios",
		Long: `Provisions every scenario as a merge request with a seeded flaw, runs the
two-stage agent review against it, applies the suggested fixes, and grades
the result by re-running the scenario's tests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if scenariosDir != "" {
				cfg.Eval.ScenariosDir = scenariosDir
			}
			if keepWorkdirs {
				cfg.Eval.KeepWorkdirs = true
			}

			scenarios, err := scenario.Load(cfg.Eval.ScenariosDir)
			if err != nil {
				return err
			}

			p, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			retry, err := buildRetryPolicy(cfg)
			if err != nil {
				return err
			}
			host, err := buildHosting(cfg, offline)
			if err != nil {
				return err
			}

			scenarioTimeout, err := cfg.ScenarioTimeout()
			if err != nil {
				return fmt.Errorf("scenario timeout: %w", err)
			}
			testTimeout, err := cfg.TestTimeout()
			if err != nil {
				return fmt.Errorf("test timeout: %w", err)
			}

			workBase := cfg.Eval.WorkBase
			if workBase == "" {
				workBase, err = os.MkdirTemp("", "revbench-")
				if err != nil {
					return fmt.Errorf("create work base: %w", err)
				}
			}

			bus := app.newBus()
			ctx := cmd.Context()

			prov := provision.New(host, workBase)
			prov.KeepWorkdirs = cfg.Eval.KeepWorkdirs

			if !skipCleanup && !offline {
				deleted, err := prov.Cleanup(ctx)
				if err != nil {
					return fmt.Errorf("pre-run cleanup: %w", err)
				}
				if deleted > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "cleaned up %d stale projects\n", deleted)
				}
			}

			engine := review.NewEngine(p, host, bus, retry, providerOptions(cfg))
			suite := eval.NewSuite(scenarios, prov, engine, testrunner.NewExecRunner(testTimeout), bus)
			suite.ScenarioTimeout = scenarioTimeout
			suite.Model = p.Describe().String()
			suite.Host = host

			result := suite.Run(ctx)

			report := &eval.Report{Color: events.IsInteractive()}
			report.Render(cmd.OutOrStdout(), result)

			if n := result.Count(eval.OutcomeError); n > 0 {
				return fmt.Errorf("%d scenarios errored", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenariosDir, "scenarios", "", "Override the scenarios directory")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the in-memory hosting fake instead of GitLab")
	cmd.Flags().BoolVar(&keepWorkdirs, "keep-workdirs", false, "Keep scenario working trees for inspection")
	cmd.Flags().BoolVar(&skipCleanup, "skip-cleanup", false, "Skip deletion of stale evaluation projects")

	return cmd
}
