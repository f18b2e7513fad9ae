package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/vaultkit/core/vault"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the vault as json, sql or markdown",
	Long: `Export every plugin, table and record.

Formats:
  json      Full nested dump of plugins, tables and records
  sql       CREATE TABLE statements matching the relational mirror
  markdown  Human-readable summary

Examples:
  vaultkit export
  vaultkit export --format sql
  vaultkit export --format markdown -o vault.md`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format: json, sql or markdown")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := vault.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	v, _, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	out, err := v.Export(context.Background(), format)
	if err != nil {
		return err
	}

	if exportOut == "" {
		fmt.Print(string(out))
		return nil
	}
	return os.WriteFile(exportOut, out, 0o644)
}
