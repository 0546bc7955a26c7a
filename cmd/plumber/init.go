package main

import (
	"github.com/spf13/cobra"

	"github.com/plumber-ci/plumber/internal/cli"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Record the current state of every pipe as the checkpoint",
	Long: `Seeds the checkpoint so that the next run only reacts to changes made
from now on. An existing checkpoint is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		force, _ := cmd.Flags().GetBool("force")
		return cli.Init(ctx, runOptions(cmd), force)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing checkpoint")
}
