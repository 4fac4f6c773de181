package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var nodeCmd = &cobra.Command{
	Use:   "node <name>",
	Short: "Resolve a single node and print its information",
	Long: `Resolves one node by its full name and prints its classes,
applications, environment, and merged parameters as YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		info, err := svc.NodeInfo(args[0])
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(info.FlatMap()); err != nil {
			return fmt.Errorf("encoding node info: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
}
