package main

import (
	"fmt"

	"github.com/aretw0/steve"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of steve",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "steve version %s\n", steve.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
