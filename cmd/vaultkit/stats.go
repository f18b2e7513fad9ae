package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts per table",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	stats, err := v.Stats(context.Background())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(stats.Tables))
	for name := range stats.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-40s %d\n", name, stats.Tables[name])
	}
	fmt.Println()
	fmt.Printf("plugins: %d, tables: %d, records: %d\n",
		stats.TotalPlugins, stats.TotalTables, stats.TotalRecords)
	return nil
}
