package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/revbench/revbench/internal/review"
	"github.com/revbench/revbench/internal/webhook"
)

// NewServeCmd creates the serve command
func NewServeCmd(app *App) *cobra.Command {
	var (
		addr    string
		project string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook-driven live review bot",
		Long: `Listens for merge request webhooks and runs the same two-stage review the
benchmark uses against each delivery. Labels move forward only within a
review cycle; a pushed commit starts a new cycle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}

			p, err := buildProvider(cfg)
			if err != nil {
				return err
			}
			retry, err := buildRetryPolicy(cfg)
			if err != nil {
				return err
			}
			host, err := buildHosting(cfg, false)
			if err != nil {
				return err
			}
			shutdownTimeout, err := cfg.ShutdownTimeout()
			if err != nil {
				return fmt.Errorf("shutdown timeout: %w", err)
			}
			reviewTimeout, err := cfg.ReviewTimeout()
			if err != nil {
				return fmt.Errorf("review timeout: %w", err)
			}

			bus := app.newBus()
			engine := review.NewEngine(p, host, bus, retry, providerOptions(cfg))

			srv := webhook.NewServer(engine, host, bus)
			srv.Project = project
			srv.CTOInstructions = cfg.Serve.CTOInstructions
			srv.ReviewTimeout = reviewTimeout

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s (reviewing with %s)\n",
				addr, p.Describe().String())
			return srv.ListenAndServe(ctx, addr, shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&project, "project", "", "Default hosting project for deliveries that omit one")

	return cmd
}
