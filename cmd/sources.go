package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the job source adapters available for job_sources[].type",
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range newRegistry().Available() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
