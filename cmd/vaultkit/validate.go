package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/vaultkit/config"
	"github.com/artpar/vaultkit/core/vault"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and plugin definitions",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Println("Configuration valid")
	fmt.Printf("  Root: %s\n", cfg.Vault.Root)
	fmt.Printf("  Mirror: %v\n", cfg.Mirror.Enabled)

	if cfg.Vault.PluginDir == "" {
		fmt.Println("  Plugins: none (no plugin_dir)")
		return nil
	}

	plugins, err := vault.ParseDir(cfg.Vault.PluginDir)
	if err != nil {
		return fmt.Errorf("plugin definitions invalid: %w", err)
	}
	fmt.Printf("  Plugins: %d\n", len(plugins))
	for _, p := range plugins {
		fmt.Printf("    %s (%d tables)\n", p.ID, len(p.Tables))
	}
	return nil
}
