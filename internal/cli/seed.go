package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/nsc-international/internal/app"
)

// NewSeedCommand creates the seed command group.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}
	cmd.AddCommand(newSeedLocationsCommand(opts))
	return cmd
}

func newSeedLocationsCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Import countries, states, cities, and sites from YAML",
		Long: `Import a countries → states → cities → sites tree from a YAML file.
Existing rows are matched by normalised name, so re-running is safe.

Example:
  nsc seed locations --file ./locations.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			return opts.withApp(cmd.Context(), func(a *app.App, log *slog.Logger) error {
				stats, err := a.Locations.ImportLocations(cmd.Context(), f)
				if err != nil {
					return err
				}
				log.Info("locations imported",
					slog.Int("created", stats.Created),
					slog.Int("existing", stats.Existing),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "created %d, existing %d\n", stats.Created, stats.Existing)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the locations YAML file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
