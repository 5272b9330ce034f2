package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

func newSellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell <account-id>",
		Short: "Bulk sell inventory items under a value threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, currency, err := cfg.sellSettings()
			if err != nil {
				return err
			}
			if !threshold.IsPositive() {
				return errors.New("--threshold must be greater than zero")
			}

			app, err := newApp(nil)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			ctx := cmd.Context()
			id := model.AccountID(args[0])
			if _, err := app.Sessions.Initialize(ctx, id); err != nil {
				return err
			}
			gameAPI, err := app.Sessions.API(id)
			if err != nil {
				return err
			}

			result, err := app.NewSeller().Run(ctx, gameAPI, threshold, currency)
			if err != nil {
				return err
			}
			if _, err := app.Sessions.Sync(ctx, id); err != nil {
				app.Logger.Warn("sync after sell failed", slog.String("error", err.Error()))
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(&result)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.SellThreshold, "threshold", cfg.SellThreshold, "Sell items valued under this amount")
	cmd.Flags().StringVar(&cfg.SellCurrency, "currency", cfg.SellCurrency, "Sell for: money, tokens")

	return cmd
}
