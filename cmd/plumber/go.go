package main

import (
	"github.com/spf13/cobra"

	"github.com/plumber-ci/plumber/internal/cli"
)

var goCmd = &cobra.Command{
	Use:     "go",
	Aliases: []string{"run"},
	Short:   "Detect changes and run CD/CI steps",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		noCheckpoint, _ := cmd.Flags().GetBool("no-checkpoint")
		return cli.Go(ctx, runOptions(cmd), !noCheckpoint)
	},
}

func init() {
	rootCmd.AddCommand(goCmd)

	goCmd.Flags().Bool("no-checkpoint", false, "Do not persist the checkpoint after the run")
}
