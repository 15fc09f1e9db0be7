package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kvperf",
	Short: "kvperf is a load-generation harness for key/value stores",
	Long:  "A load-generation harness that drives a key/value store through phased workloads (bulk load, mixed read/insert/update traffic, periodic checkpoints) while measuring throughput and latency",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		GConfig.loadIfPresent()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	rootCmd.AddCommand(ConfigCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
