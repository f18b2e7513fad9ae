package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a read query against the relational mirror",
	Long: `Run SQL against the mirror and print rows as JSON lines.

The mirror reflects the file tree as of the last sync; run 'vaultkit sync'
first for fresh results.

Examples:
  vaultkit query "SELECT title, score FROM reddit_posts ORDER BY score DESC"
  vaultkit query "SELECT count(*) AS n FROM reddit_comments"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	rows, err := v.Query(context.Background(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
