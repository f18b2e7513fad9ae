package table

import "time"

// ListOptions configures list queries. Filtering, sorting, and pagination
// all happen in memory; there is no on-disk index.
type ListOptions struct {
	// Where filters by exact equality: every key must match.
	// The keys "id" and "content" address the implicit fields.
	Where map[string]any

	// OrderBy is the single field to sort by. Records missing the field
	// sort last in both directions; ties keep directory order.
	OrderBy string

	// Desc sorts in descending order.
	Desc bool

	// Offset is the number of records to skip after filtering and sorting.
	Offset int

	// Limit is the maximum number of records to return. Zero means no limit.
	Limit int
}

// Observer receives a callback for every completed engine operation.
// A nil observer is a no-op.
type Observer interface {
	ObserveOp(plugin, table, op string, d time.Duration, err error)
}

// SyncObserver is an optional Observer extension notified after every mirror
// sync attempt against a configured mirror.
type SyncObserver interface {
	ObserveSync(d time.Duration, err error)
}

// CountObserver is an optional Observer extension that receives per-table
// record counts whenever stats are collected.
type CountObserver interface {
	SetRecordCount(plugin, table string, n int)
}

// BuiltinOps lists the seven built-in CRUD operation names. Custom action
// names must not collide with them.
func BuiltinOps() []string {
	return []string{"get", "list", "create", "update", "delete", "count", "exists"}
}

// IsBuiltinOp reports whether name is one of the built-in CRUD operations.
func IsBuiltinOp(name string) bool {
	switch name {
	case "get", "list", "create", "update", "delete", "count", "exists":
		return true
	default:
		return false
	}
}
