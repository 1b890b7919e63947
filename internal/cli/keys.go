package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/models"
)

const createdLayout = "2006-01-02 15:04"

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

type deleteResult struct {
	ID      models.ID `json:"id" yaml:"id"`
	Deleted bool      `json:"deleted" yaml:"deleted"`
}

func newKeysCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	var copySecret bool
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an API key and print its one-time secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			key, err := mgr.Keys().Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if copySecret {
				if err := writeClipboard(key.Secret); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not copy secret: %v\n", err)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "Secret copied to clipboard.")
				}
			}
			if rt.output == formatTable {
				fmt.Fprintln(cmd.ErrOrStderr(), "Store the secret now. It will not be shown again.")
			}

			return render(cmd.OutOrStdout(), rt.output, key, func(tw *tabwriter.Writer) {
				writeKeyTable(tw, []models.APIKey{key}, true)
			})
		},
	}
	create.Flags().BoolVar(&copySecret, "copy", false, "Copy the secret to the clipboard")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List API keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := rt.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				keys, err := mgr.Keys().List(cmd.Context())
				if err != nil {
					return err
				}
				if keys == nil {
					keys = []models.APIKey{}
				}
				return render(cmd.OutOrStdout(), rt.output, keys, func(tw *tabwriter.Writer) {
					writeKeyTable(tw, keys, false)
				})
			},
		},
		create,
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := rt.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				id := models.ID(args[0])
				if err := mgr.Keys().Remove(cmd.Context(), id); err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), rt.output, deleteResult{ID: id, Deleted: true}, func(tw *tabwriter.Writer) {
					_, _ = fmt.Fprintf(tw, "Deleted API key %s\n", id)
				})
			},
		},
		newKeyStateCommand(rt, "enable", "Enable an API key", func(models.APIKey) bool { return false }),
		newKeyStateCommand(rt, "disable", "Disable an API key", func(models.APIKey) bool { return true }),
		newKeyStateCommand(rt, "toggle", "Flip an API key between enabled and disabled", func(k models.APIKey) bool { return !k.Disabled }),
	)

	return cmd
}

// newKeyStateCommand builds enable, disable and toggle. next maps the
// current key to the desired disabled flag.
func newKeyStateCommand(rt *runtime, use, short string, next func(models.APIKey) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			store := mgr.Keys()
			if _, err := store.List(cmd.Context()); err != nil {
				return err
			}

			id := models.ID(args[0])
			current, ok := store.Get(id)
			if !ok {
				return fmt.Errorf("API key %s not found", id)
			}

			key, err := store.Update(cmd.Context(), id, next(current))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rt.output, key, func(tw *tabwriter.Writer) {
				_, _ = fmt.Fprintf(tw, "API key %s (%s) is now %s\n", key.Name, key.ID, key.StatusLabel())
			})
		},
	}
}

func writeKeyTable(tw *tabwriter.Writer, keys []models.APIKey, withSecret bool) {
	columns := []string{"ID", "NAME", "STATUS", "CREATED"}
	if withSecret {
		columns = append(columns, "SECRET")
	}
	writeHeader(tw, columns...)

	for _, k := range keys {
		created := ""
		if !k.CreatedAt.IsZero() {
			created = k.CreatedAt.Local().Format(createdLayout)
		}
		cells := []string{k.ID.String(), k.Name, k.StatusLabel(), orDash(created)}
		if withSecret {
			cells = append(cells, k.Secret)
		}
		writeRow(tw, cells...)
	}
}
