package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSignUpCommand(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an EasyRouter account",
		Long: `Create an account on the configured backend.

--email and --password default to EASYROUTER_EMAIL and EASYROUTER_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = rt.cfg.Email
			}
			if password == "" {
				password = rt.cfg.Password
			}

			mgr, err := rt.manager()
			if err != nil {
				return err
			}
			res := mgr.SignUp(cmd.Context(), email, password)
			if !res.OK() {
				return res.Failure
			}

			identity := res.Identity
			return render(cmd.OutOrStdout(), rt.output, identity, func(tw *tabwriter.Writer) {
				_, _ = fmt.Fprintf(tw, "Account created for %s (id %s)\n", email, identity.ID)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")

	return cmd
}
