package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/caseclicker-orchestrator/internal/api/middleware"
)

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to use as CONTROL_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashToken(args[0])
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(hash)
			return nil
		},
	}
}
