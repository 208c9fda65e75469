// Package cli wires the repomine commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/repomine/repomine/internal/logging"
)

var (
	cfgPath     string
	logLevel    string
	pretty      bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "repomine",
	Short: "Mine GitHub issue, pull request, and commit data",
	Long: `repomine extracts configurable fields from a GitHub repository's issues,
pull requests, and their latest commits over a bounded number range,
merge-writing the results to a JSON file. Rate-limit interruptions flush
collected data and resume automatically once the quota resets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Config{Level: logLevel, Pretty: pretty})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "repomine.toml",
		"path to the job configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false,
		"human-readable log output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "",
		"address to expose Prometheus metrics on (disabled when empty)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
