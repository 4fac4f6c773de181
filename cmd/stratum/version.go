package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strataconf/stratum"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stratum",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stratum version %s\n", strings.TrimSpace(stratum.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
