package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		defer db.Close()

		logging.FromCtx(ctx).Info().Str("driver", cfg.DatabaseDriver).Msg("database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
