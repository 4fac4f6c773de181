package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Resolve every node and print the full inventory",
	Long: `Resolves all nodes in the inventory and prints the aggregate as YAML:
the node map, the class and application indexes, and build metadata.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		inv, err := svc.Inventory()
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(inv.FlatMap()); err != nil {
			return fmt.Errorf("encoding inventory: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
}
