package cli

import (
	"github.com/spf13/cobra"
)

func newAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List every account in the state store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(nil)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			accounts, err := app.Storage.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(accounts)
			return nil
		},
	}
}
