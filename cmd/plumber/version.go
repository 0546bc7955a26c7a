package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plumber-ci/plumber"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of plumber",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "plumber version %s\n", plumber.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
