package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Resolve one message through the reply pipeline and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		if err := cfg.ValidateProvider(); err != nil {
			return err
		}

		p, err := newPipeline(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer p.Close()

		reply := p.resolver.Resolve(ctx, strings.Join(args, " "), nil)
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
