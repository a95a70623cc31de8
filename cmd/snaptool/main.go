// snaptool reviews pending snapshots (*.new files) produced by pysnaptest:
// list them, accept them as the new reference, or reject them.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "snaptool",
	Short: "Review pending pysnaptest snapshots",
	Long: "snaptool manages pending snapshot files (*.new) written when a test\n" +
		"records a diverging or new result: list them, accept them as the new\n" +
		"reference, or reject them and keep the stored reference.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
