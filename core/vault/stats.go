package vault

import (
	"context"

	"github.com/artpar/vaultkit/core/table"
)

// Stats reports per-table record counts plus totals. Derived purely by
// counting every composed table; nothing is cached.
type Stats struct {
	// Tables maps "{pluginID}.{tableName}" to its record count.
	Tables map[string]int `json:"tables"`

	TotalRecords int `json:"total_records"`
	TotalTables  int `json:"total_tables"`
	TotalPlugins int `json:"total_plugins"`
}

// Stats counts the records of every composed table.
func (v *Vault) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Tables:       make(map[string]int),
		TotalPlugins: len(v.plugins),
	}
	co, _ := v.observer.(table.CountObserver)
	for _, eng := range v.engines() {
		n, err := eng.Count(ctx, nil)
		if err != nil {
			return nil, err
		}
		stats.Tables[eng.Plugin()+"."+eng.Name()] = n
		stats.TotalRecords += n
		stats.TotalTables++
		if co != nil {
			co.SetRecordCount(eng.Plugin(), eng.Name(), n)
		}
	}
	return stats, nil
}

// Refresh re-reads the file tree and returns fresh statistics. The vault
// keeps no in-memory cache, so this is equivalent to Stats; the operation
// exists so callers observing the same vault path from another process have
// an explicit re-read point.
func (v *Vault) Refresh(ctx context.Context) (*Stats, error) {
	return v.Stats(ctx)
}
