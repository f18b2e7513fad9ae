package vault

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/ports"
)

// ErrNoMirror is returned by Sync and Query when the vault was composed
// without a relational mirror.
var ErrNoMirror = errors.New("no relational mirror configured")

// Options assembles a vault.
type Options struct {
	// Root is the directory tree exclusively owned by the vault.
	Root string

	// Plugins are the plugin declarations to compose.
	Plugins []PluginConfig

	// IDs mints record ids. Required.
	IDs ports.IDGenerator

	// Mirror is the optional external relational collaborator.
	Mirror ports.Mirror

	Logger   zerolog.Logger
	Observer table.Observer
}

// Vault is the root aggregate. It is constructed once from a static
// configuration, never mutates that configuration afterwards, and owns the
// directory tree beneath its root path.
type Vault struct {
	root        string
	plugins     map[string]*Plugin
	pluginOrder []string
	mirror      ports.Mirror
	observer    table.Observer
	log         zerolog.Logger
}

// New validates the full composition, then builds every plugin. Any
// configuration error fails construction before a single directory is
// created: plugin/table name formats, duplicate mirror names, action name
// collisions.
func New(opts Options) (*Vault, error) {
	if opts.Root == "" {
		return nil, schema.Configf("vault root directory is required")
	}
	if opts.IDs == nil {
		return nil, schema.Configf("id generator is required")
	}

	// Validation pass: nothing touches the filesystem until it succeeds.
	seenPlugins := make(map[string]bool)
	mirrorNames := make(map[string]string)
	for _, cfg := range opts.Plugins {
		if err := validatePluginConfig(cfg); err != nil {
			return nil, err
		}
		if seenPlugins[cfg.ID] {
			return nil, schema.Configf("duplicate plugin id %q", cfg.ID)
		}
		seenPlugins[cfg.ID] = true

		for tableName := range cfg.Tables {
			mirror := MirrorName(cfg.ID, tableName)
			if owner, taken := mirrorNames[mirror]; taken {
				return nil, schema.Configf("mirror name %q claimed by both %s and %s",
					mirror, owner, cfg.ID)
			}
			mirrorNames[mirror] = cfg.ID
		}
	}

	v := &Vault{
		root:     opts.Root,
		plugins:  make(map[string]*Plugin, len(opts.Plugins)),
		mirror:   opts.Mirror,
		observer: opts.Observer,
		log:      opts.Logger,
	}
	for _, cfg := range opts.Plugins {
		p, err := composePlugin(cfg, opts.Root, opts.IDs, opts.Logger, opts.Observer)
		if err != nil {
			return nil, err
		}
		v.plugins[cfg.ID] = p
		v.pluginOrder = append(v.pluginOrder, cfg.ID)
	}
	sort.Strings(v.pluginOrder)

	v.log.Info().
		Str("root", opts.Root).
		Int("plugins", len(v.plugins)).
		Int("tables", len(mirrorNames)).
		Msg("vault composed")
	return v, nil
}

// Root returns the vault's root directory.
func (v *Vault) Root() string { return v.root }

// Plugins returns the composed plugin ids, sorted.
func (v *Vault) Plugins() []string {
	out := make([]string, len(v.pluginOrder))
	copy(out, v.pluginOrder)
	return out
}

// Plugin returns a composed plugin by id.
func (v *Vault) Plugin(id string) (*Plugin, bool) {
	p, ok := v.plugins[id]
	return p, ok
}

// Table returns one table engine by plugin id and table name.
func (v *Vault) Table(pluginID, tableName string) (*table.Engine, bool) {
	p, ok := v.plugins[pluginID]
	if !ok {
		return nil, false
	}
	return p.Engine(tableName)
}

// Call invokes a custom table action, addressed vault-wide.
func (v *Vault) Call(ctx context.Context, pluginID, tableName, actionName string, input any) (any, error) {
	p, ok := v.plugins[pluginID]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q", pluginID)
	}
	return p.CallTable(ctx, tableName, actionName, input)
}

// CallPlugin invokes a plugin-level action.
func (v *Vault) CallPlugin(ctx context.Context, pluginID, actionName string, input any) (any, error) {
	p, ok := v.plugins[pluginID]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q", pluginID)
	}
	return p.Call(ctx, actionName, input)
}

// Query executes a read query against the relational mirror. Results are
// undefined until Sync has completed at least once.
func (v *Vault) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if v.mirror == nil {
		return nil, ErrNoMirror
	}
	return v.mirror.Query(ctx, query, args...)
}

// Close releases the mirror connection, if any.
func (v *Vault) Close() error {
	if v.mirror == nil {
		return nil
	}
	return v.mirror.Close()
}

// engines iterates every table engine in deterministic order.
func (v *Vault) engines() []*table.Engine {
	var out []*table.Engine
	for _, pluginID := range v.pluginOrder {
		p := v.plugins[pluginID]
		for _, tableName := range p.tableNames {
			out = append(out, p.tables[tableName])
		}
	}
	return out
}
