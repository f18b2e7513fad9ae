// Package action wraps handlers with input validation and binds them to a
// table or plugin context. The validator contract is pluggable: anything
// that accepts unknown input and returns either a typed value or a
// non-empty list of path+message issues can validate action input.
package action

import (
	"context"

	"github.com/artpar/vaultkit/core/record"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
)

// Kind classifies an action as a read or a write.
type Kind int

const (
	// Query actions read state.
	Query Kind = iota

	// Mutation actions change state.
	Mutation
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// Validator is the pluggable input-validation contract.
type Validator interface {
	// Validate returns the typed value on success, or a non-empty issue
	// list on failure.
	Validate(value any) (any, []schema.Issue)
}

// TableContext is the CRUD surface a table-level handler receives.
// The table engine satisfies it.
type TableContext interface {
	Get(ctx context.Context, id string) (*record.Record, error)
	List(ctx context.Context, opts table.ListOptions) ([]record.Record, error)
	Create(ctx context.Context, fields map[string]any) (*record.Record, error)
	Update(ctx context.Context, id string, partial map[string]any) (*record.Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, where map[string]any) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// PluginContext exposes a plugin's full table set to plugin-level handlers.
type PluginContext interface {
	// Table returns the named table's CRUD surface.
	Table(name string) (TableContext, bool)

	// Tables lists the plugin's table names.
	Tables() []string
}

// TableHandler is a custom table-level operation. It receives its table
// context explicitly; there is no implicit receiver.
type TableHandler func(ctx context.Context, input any, tables TableContext) (any, error)

// PluginHandler is a plugin-level operation over all the plugin's tables.
type PluginHandler func(ctx context.Context, input any, plugin PluginContext) (any, error)

// Definition declares a custom table-level action. Constructed once at
// plugin-definition time, invoked many times; the action itself is
// stateless, all state lives in the filesystem.
type Definition struct {
	Kind    Kind
	Input   Validator // nil skips input validation
	Handler TableHandler
}

// PluginDefinition declares a plugin-level action.
type PluginDefinition struct {
	Kind    Kind
	Input   Validator
	Handler PluginHandler
}
