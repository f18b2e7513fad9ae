package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the relational mirror from the file tree",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Mirror.Enabled {
		return fmt.Errorf("mirror is disabled; set mirror.enabled: true")
	}
	logger := newLogger(cfg)

	v, _, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	if err := v.Sync(context.Background()); err != nil {
		return err
	}
	fmt.Println("mirror synced")
	return nil
}
