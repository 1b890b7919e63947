package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

const ledgerLayout = "2006-01-02 15:04:05"

type ledgerView struct {
	Ledger  []models.LedgerEntry `json:"ledger" yaml:"ledger"`
	Balance int64                `json:"balance" yaml:"balance"`
}

type onrampView struct {
	Entry   models.LedgerEntry `json:"entry" yaml:"entry"`
	Balance int64              `json:"balance" yaml:"balance"`
}

func newCreditsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show and add credits",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "history",
			Short: "Print the credit ledger, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := rt.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				snap, err := mgr.Credits().Load(cmd.Context())
				if err != nil {
					return err
				}

				view := ledgerView{Ledger: snap.Ledger, Balance: snap.Balance.Amount}
				if view.Ledger == nil {
					view.Ledger = []models.LedgerEntry{}
				}
				return render(cmd.OutOrStdout(), rt.output, view, func(tw *tabwriter.Writer) {
					writeHeader(tw, "TIME", "KIND", "AMOUNT", "DESCRIPTION")
					for _, e := range view.Ledger {
						writeRow(tw,
							e.Timestamp.Local().Format(ledgerLayout),
							string(e.Kind),
							signedAmount(e.Amount),
							orDash(e.Description),
						)
					}
					_, _ = fmt.Fprintf(tw, "\nBalance: %d credits\n", view.Balance)
				})
			},
		},
		&cobra.Command{
			Use:   "onramp",
			Short: "Ask the server to grant credits",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := rt.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				store := mgr.Credits()
				if _, err := store.Load(cmd.Context()); err != nil {
					return err
				}
				entry, err := store.Onramp(cmd.Context())
				if err != nil {
					return err
				}

				view := onrampView{Entry: entry, Balance: store.Balance().Amount}
				return render(cmd.OutOrStdout(), rt.output, view, func(tw *tabwriter.Writer) {
					_, _ = fmt.Fprintf(tw, "Added %d credits. Balance: %d\n", entry.Amount, view.Balance)
				})
			},
		},
	)

	return cmd
}

func signedAmount(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
