// Package ports defines the interfaces between the vault core and adapters.
// The core depends only on these interfaces; adapters implement them.
package ports

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// IDGenerator mints record identifiers. Identifiers encode the owning
// plugin and table for debuggability: {plugin}_{table}_{unixMillis}_{suffix}.
type IDGenerator interface {
	// NewID returns a new unique record id for the given table.
	NewID(plugin, table string) string
}

// MirrorColumn describes one column of a mirrored table.
type MirrorColumn struct {
	Name       string
	SQLType    string
	PrimaryKey bool
}

// MirrorTable is a full snapshot of one vault table in relational form.
// Columns are always id, content, created_at followed by the schema fields.
type MirrorTable struct {
	// Name is the flat mirror name, {pluginID}_{tableName}.
	Name string

	Columns []MirrorColumn

	// Rows holds one map per record, keyed by column name. Values of
	// object and array fields are pre-encoded as JSON strings.
	Rows []map[string]any
}

// Mirror is the external relational collaborator. Sync rebuilds it from the
// file tree; after ReplaceTable returns for every table, the mirror reflects
// exactly the current on-disk state. Implementations must make ReplaceTable
// idempotent.
type Mirror interface {
	// ReplaceTable atomically swaps the mirrored table for the snapshot.
	ReplaceTable(ctx context.Context, table MirrorTable) error

	// Query executes a read query against the mirror. Results are undefined
	// until a sync has completed at least once.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)

	// Close releases the mirror connection.
	Close() error
}
