package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vaultkit",
	Short: "Schema-driven file-backed record store with a relational mirror",
	Long: `Vaultkit stores plugin-declared records as plain files, one record per
file, with a typed YAML header and a free-form body. A SQLite mirror makes
the same records queryable with SQL.

Quick start:
  vaultkit validate  # Check configuration and plugin definitions
  vaultkit serve     # Start the HTTP API

Data:
  vaultkit stats     # Record counts per table
  vaultkit export    # Dump the vault as json, sql or markdown
  vaultkit sync      # Rebuild the relational mirror
  vaultkit query     # Run SQL against the mirror`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "vaultkit.yaml", "config file path")
}
