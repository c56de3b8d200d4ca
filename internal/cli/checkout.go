package cli

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/nsc-international/internal/app"
	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// operator is the principal CLI repairs run as.
var operator = model.Principal{UserID: "cli", IsStaff: true}

// NewCheckoutCommand creates the checkout command group.
func NewCheckoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Repair Stripe checkouts by hand",
	}
	cmd.AddCommand(newCheckoutFinalizeCommand(opts))
	cmd.AddCommand(newCheckoutExpireCommand(opts))
	return cmd
}

func newCheckoutFinalizeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <session-id>",
		Short: "Finalize a paid Stripe session whose webhook never arrived",
		Long: `Ask Stripe for the session and, when it is paid, create the order,
attendance, and reservations exactly as the webhook would. Running it on an
already finalized session prints the existing order.

Example:
  nsc checkout finalize cs_test_a1b2c3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App, log *slog.Logger) error {
				order, err := a.Checkout.ConfirmFromRedirect(cmd.Context(), operator, args[0])
				if err != nil {
					return err
				}
				log.Info("checkout finalized", slog.String("session_id", args[0]), slog.String("order_id", order.ID))

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(order)
			})
		},
	}
}

func newCheckoutExpireCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expire <session-id>",
		Short: "Expire an unpaid Stripe session and close its checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App, log *slog.Logger) error {
				if err := a.Checkout.Expire(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.Info("checkout expired", slog.String("session_id", args[0]))
				return nil
			})
		},
	}
}
