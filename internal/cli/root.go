// Package cli defines the nsc command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/nsc-international/internal/app"
	"github.com/Shivanand-hulikatti/nsc-international/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the nsc binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nsc",
		Short: "NSC International events, hotels, and checkout backend",
		Long: `Backend for NSC International baseball events.

Serves the JSON API for events, divisions, locations, hotels, player
registration, and Stripe checkout, and publishes order events through the
outbox.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("NSC_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", defaultConfig, "path to YAML config file (env NSC_CONFIG)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))

	return cmd
}

// load reads configuration and builds the process logger.
func (o *RootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.SetupLogger(cfg.Env), nil
}

// withApp builds a fully wired App, runs fn, and closes the App.
func (o *RootOptions) withApp(ctx context.Context, fn func(a *app.App, log *slog.Logger) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	defer a.Close()

	return fn(a, log)
}
