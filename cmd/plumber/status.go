package main

import (
	"github.com/spf13/cobra"

	"github.com/plumber-ci/plumber/internal/cli"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"detect"},
	Short:   "Detect changes and print out a report",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Status(ctx, runOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
