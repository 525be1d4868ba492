package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "catsden",
	Short: "Cat's Den storefront backend",
	Long: `catsden serves the Cat's Den kitten storefront API: catalog reads backed
by the content system, carts, customer accounts, orders and payment webhooks.

Configuration comes from a YAML file (--config) and CATSDEN_* environment
variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
