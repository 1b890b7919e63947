package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

// offeringView is an offering with its provider name resolved.
type offeringView struct {
	ProviderID models.ID `json:"providerId" yaml:"providerId"`
	Provider   string    `json:"provider" yaml:"provider"`
	Pricing    string    `json:"pricing,omitempty" yaml:"pricing,omitempty"`
	Endpoint   string    `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Features   []string  `json:"features" yaml:"features"`
}

func newModelsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Browse the model catalog",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List routable models",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := rt.manager()
				if err != nil {
					return err
				}
				snap, err := mgr.Catalog().List(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rt.output, snap.Models, func(tw *tabwriter.Writer) {
					writeHeader(tw, "ID", "NAME", "CATEGORY", "DESCRIPTION")
					for _, m := range snap.Models {
						writeRow(tw, m.ID.String(), m.Name, orDash(m.Category), orDash(m.Description))
					}
				})
			},
		},
		&cobra.Command{
			Use:   "providers [MODEL_ID]",
			Short: "List providers, or the providers serving one model",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := rt.manager()
				if err != nil {
					return err
				}
				store := mgr.Catalog()
				snap, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				if len(args) == 0 {
					return render(cmd.OutOrStdout(), rt.output, snap.Providers, func(tw *tabwriter.Writer) {
						writeHeader(tw, "ID", "NAME", "DESCRIPTION")
						for _, p := range snap.Providers {
							writeRow(tw, p.ID.String(), p.Name, orDash(p.Description))
						}
					})
				}

				modelID := models.ID(args[0])
				if _, ok := store.Model(modelID); !ok {
					return fmt.Errorf("model %s not found", modelID)
				}
				offerings, err := store.ProvidersForModel(cmd.Context(), modelID)
				if err != nil {
					return err
				}

				views := make([]offeringView, 0, len(offerings))
				for _, o := range offerings {
					views = append(views, offeringView{
						ProviderID: o.ProviderID,
						Provider:   store.ProviderName(o.ProviderID),
						Pricing:    o.Pricing,
						Endpoint:   o.Endpoint,
						Features:   o.Features,
					})
				}
				return render(cmd.OutOrStdout(), rt.output, views, func(tw *tabwriter.Writer) {
					writeHeader(tw, "PROVIDER", "PRICING", "ENDPOINT", "FEATURES")
					for _, v := range views {
						writeRow(tw, v.Provider, orDash(v.Pricing), orDash(v.Endpoint), orDash(strings.Join(v.Features, ", ")))
					}
				})
			},
		},
	)

	return cmd
}
