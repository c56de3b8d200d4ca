package cli

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/nsc-international/internal/app"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox worker",
		Long: `Run the HTTP API and the outbox worker until SIGINT or SIGTERM.

Example:
  nsc serve --config ./config.yaml
  NSC_ENV=production nsc serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			log.Info("starting application", slog.String("env", cfg.Env))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, log, cfg)
			if err != nil {
				return fmt.Errorf("start app: %w", err)
			}
			defer a.Close()

			if err := a.Serve(ctx); err != nil {
				return err
			}
			log.Info("application stopped")
			return nil
		},
	}
}
