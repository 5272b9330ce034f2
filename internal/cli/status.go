package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <account-id>",
		Short: "Show the persisted progress of an account",
		Long:  "Status reads the state store only; it makes no calls to the game API.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(nil)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			ctx := cmd.Context()
			account, err := app.Storage.GetAccount(ctx, model.AccountID(args[0]))
			if err != nil {
				return err
			}
			global, err := app.Storage.GetGlobalState(ctx)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(engine.BuildStatus(account, global, app.Clock.Now()))
			return nil
		},
	}
}
