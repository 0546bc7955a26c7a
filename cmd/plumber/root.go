package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plumber-ci/plumber"
	"github.com/plumber-ci/plumber/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "plumber",
	Short: "Run CD/CI steps for the parts of a repository that changed",
	Long: `Plumber runs arbitrary shell scripts when it detects that configurable
conditions are true, such as changes to paths of a git repository since the
last successful run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("cfg", "c", plumber.DefaultConfigPath, "Path to the plumber configuration file")
	flags.CountP("verbose", "v", "Increase verbosity (-vv step output, -vvv warnings, -vvvv info, -vvvvv debug)")
	flags.Bool("no-banner", false, "Do not print the banner")
	flags.String("pushgateway", "", "Push run metrics to this Prometheus Pushgateway URL")

	_ = viper.BindPFlag("config", flags.Lookup("cfg"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("no_banner", flags.Lookup("no-banner"))
	_ = viper.BindPFlag("pushgateway", flags.Lookup("pushgateway"))
}

func initConfig() {
	viper.SetEnvPrefix("PLUMBER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// runOptions reads the global flags, with PLUMBER_* environment variables
// taking effect when a flag is not given.
func runOptions(cmd *cobra.Command) cli.RunOptions {
	return cli.RunOptions{
		ConfigPath:  viper.GetString("config"),
		Verbosity:   viper.GetInt("verbose"),
		NoBanner:    viper.GetBool("no_banner"),
		Pushgateway: viper.GetString("pushgateway"),
		Out:         cmd.OutOrStdout(),
		Log:         cmd.ErrOrStderr(),
	}
}
