package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/strataconf/stratum"
	"github.com/strataconf/stratum/internal/logging"
	"github.com/strataconf/stratum/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "stratum",
	Short: "Stratum resolves class-based configuration inventories",
	Long: `Stratum turns a directory tree of YAML node and class documents into a
fully resolved inventory: per-node merged parameters with references
interpolated, plus global class and application indexes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("inventory", "i", ".", "Inventory base directory")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("ignore-class-notfound", false, "Warn instead of fail on missing classes")
	rootCmd.PersistentFlags().Bool("compose-node-name", false, "Compose node names from their directory path")
}

// newService builds the resolution service from the persistent flags.
// Boolean flags override their config-file counterparts only when set
// on the command line.
func newService(cmd *cobra.Command) (*stratum.Service, error) {
	base, _ := cmd.Flags().GetString("inventory")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.FromInventory(base)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("ignore-class-notfound") {
		cfg.IgnoreClassNotFound, _ = cmd.Flags().GetBool("ignore-class-notfound")
	}
	if cmd.Flags().Changed("compose-node-name") {
		cfg.ComposeNodeName, _ = cmd.Flags().GetBool("compose-node-name")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return stratum.New(base, stratum.WithConfig(cfg), stratum.WithLogger(logging.New(level)))
}
