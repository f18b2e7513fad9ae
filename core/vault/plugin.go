// Package vault composes plugins into one file-backed record store.
// A plugin declares tables, hooks, and custom actions; the vault builds one
// table engine per table, validates the composition, and exposes aggregate
// operations over the whole namespace.
package vault

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/core/action"
	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/ports"
)

// TableConfig declares one table: its schema, optional hooks, and optional
// custom actions keyed by name.
type TableConfig struct {
	Schema  *schema.Definition
	Hooks   table.Hooks
	Actions map[string]action.Definition
}

// PluginConfig declares a plugin: a named bundle of tables and actions.
type PluginConfig struct {
	// ID must match ^[a-z][a-z0-9_]*$ and be unique within a vault.
	ID string

	// DisplayName is the human-readable plugin name.
	DisplayName string

	// Tables maps table name to its declaration.
	Tables map[string]TableConfig

	// Actions are plugin-level operations over the plugin's full table set.
	Actions map[string]action.PluginDefinition
}

// MirrorName derives the flat relational-mirror name for one table.
func MirrorName(pluginID, tableName string) string {
	return pluginID + "_" + tableName
}

// Plugin is a composed plugin: its engines and bound actions.
type Plugin struct {
	id          string
	displayName string
	tableNames  []string
	tables      map[string]*table.Engine
	tableActs   map[string]map[string]*action.Bound
	actions     map[string]*action.PluginBound
}

// ID returns the plugin id.
func (p *Plugin) ID() string { return p.id }

// DisplayName returns the human-readable name.
func (p *Plugin) DisplayName() string { return p.displayName }

// Tables returns the plugin's table names, sorted.
func (p *Plugin) Tables() []string {
	out := make([]string, len(p.tableNames))
	copy(out, p.tableNames)
	return out
}

// Table returns the named table's CRUD surface. It satisfies
// action.PluginContext, so plugin-level handlers see only this plugin's
// tables.
func (p *Plugin) Table(name string) (action.TableContext, bool) {
	eng, ok := p.tables[name]
	if !ok {
		return nil, false
	}
	return eng, true
}

// Engine returns the named table engine.
func (p *Plugin) Engine(name string) (*table.Engine, bool) {
	eng, ok := p.tables[name]
	return eng, ok
}

// Actions returns the plugin-level action names, sorted.
func (p *Plugin) Actions() []string {
	names := make([]string, 0, len(p.actions))
	for name := range p.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableActions returns the custom action names of one table, sorted.
func (p *Plugin) TableActions(tableName string) []string {
	names := make([]string, 0, len(p.tableActs[tableName]))
	for name := range p.tableActs[tableName] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a plugin-level action.
func (p *Plugin) Call(ctx context.Context, actionName string, input any) (any, error) {
	bound, ok := p.actions[actionName]
	if !ok {
		return nil, fmt.Errorf("plugin %s: unknown action %q", p.id, actionName)
	}
	return bound.Call(ctx, input)
}

// CallTable invokes a custom action on one of the plugin's tables.
func (p *Plugin) CallTable(ctx context.Context, tableName, actionName string, input any) (any, error) {
	bound, ok := p.tableActs[tableName][actionName]
	if !ok {
		return nil, fmt.Errorf("plugin %s: table %s has no action %q", p.id, tableName, actionName)
	}
	return bound.Call(ctx, input)
}

var _ action.PluginContext = (*Plugin)(nil)

// validatePluginConfig checks everything that can fail without touching the
// filesystem: name formats, schema presence, action collisions, references.
func validatePluginConfig(cfg PluginConfig) error {
	if !schema.ValidName(cfg.ID) {
		return schema.Configf("invalid plugin id %q", cfg.ID)
	}
	if len(cfg.Tables) == 0 {
		return schema.Configf("plugin %s declares no tables", cfg.ID)
	}
	for tableName, tc := range cfg.Tables {
		if !schema.ValidName(tableName) {
			return schema.Configf("plugin %s: invalid table name %q", cfg.ID, tableName)
		}
		if tc.Schema == nil {
			return schema.Configf("plugin %s: table %s has no schema", cfg.ID, tableName)
		}
		for _, fd := range tc.Schema.Fields() {
			if fd.Field.References == "" {
				continue
			}
			if _, ok := cfg.Tables[fd.Field.References]; !ok {
				return schema.Configf("plugin %s: table %s field %s references unknown table %q",
					cfg.ID, tableName, fd.Name, fd.Field.References)
			}
		}
		for actName, def := range tc.Actions {
			if !schema.ValidName(actName) {
				return schema.Configf("plugin %s: table %s: invalid action name %q", cfg.ID, tableName, actName)
			}
			if table.IsBuiltinOp(actName) {
				return schema.Configf("plugin %s: table %s: action %q collides with a built-in operation",
					cfg.ID, tableName, actName)
			}
			if def.Handler == nil {
				return schema.Configf("plugin %s: table %s: action %q has no handler", cfg.ID, tableName, actName)
			}
		}
	}
	for actName, def := range cfg.Actions {
		if !schema.ValidName(actName) {
			return schema.Configf("plugin %s: invalid action name %q", cfg.ID, actName)
		}
		if def.Handler == nil {
			return schema.Configf("plugin %s: action %q has no handler", cfg.ID, actName)
		}
	}
	return nil
}

// composePlugin builds a plugin's engines and binds its actions. The config
// must already have passed validatePluginConfig.
func composePlugin(cfg PluginConfig, root string, ids ports.IDGenerator, logger zerolog.Logger, obs table.Observer) (*Plugin, error) {
	p := &Plugin{
		id:          cfg.ID,
		displayName: cfg.DisplayName,
		tables:      make(map[string]*table.Engine, len(cfg.Tables)),
		tableActs:   make(map[string]map[string]*action.Bound),
		actions:     make(map[string]*action.PluginBound),
	}
	if p.displayName == "" {
		p.displayName = cfg.ID
	}

	for tableName := range cfg.Tables {
		p.tableNames = append(p.tableNames, tableName)
	}
	sort.Strings(p.tableNames)

	for _, tableName := range p.tableNames {
		tc := cfg.Tables[tableName]
		eng, err := table.New(table.Config{
			Plugin:   cfg.ID,
			Name:     tableName,
			Dir:      filepath.Join(root, cfg.ID, tableName),
			Schema:   tc.Schema,
			Hooks:    tc.Hooks,
			IDs:      ids,
			Logger:   logger,
			Observer: obs,
		})
		if err != nil {
			return nil, err
		}
		p.tables[tableName] = eng

		if len(tc.Actions) > 0 {
			p.tableActs[tableName] = make(map[string]*action.Bound, len(tc.Actions))
			for actName, def := range tc.Actions {
				bound, err := action.BindTable(actName, def, eng)
				if err != nil {
					return nil, err
				}
				p.tableActs[tableName][actName] = bound
			}
		}
	}

	for actName, def := range cfg.Actions {
		bound, err := action.BindPlugin(actName, def, p)
		if err != nil {
			return nil, err
		}
		p.actions[actName] = bound
	}

	return p, nil
}
