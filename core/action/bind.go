package action

import (
	"context"

	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
)

// Bound is a table-level action bound to its table context.
type Bound struct {
	name string
	def  Definition
	tctx TableContext
}

// BindTable binds a definition to a table context. The action name must not
// collide with a built-in CRUD operation.
func BindTable(name string, def Definition, tctx TableContext) (*Bound, error) {
	if !schema.ValidName(name) {
		return nil, schema.Configf("invalid action name %q", name)
	}
	if table.IsBuiltinOp(name) {
		return nil, schema.Configf("action %q collides with a built-in operation", name)
	}
	if def.Handler == nil {
		return nil, schema.Configf("action %q has no handler", name)
	}
	return &Bound{name: name, def: def, tctx: tctx}, nil
}

// Name returns the action name.
func (b *Bound) Name() string { return b.name }

// Kind returns the action kind.
func (b *Bound) Kind() Kind { return b.def.Kind }

// Call validates the raw input and invokes the handler with the validated
// value and the bound table context. A validation failure surfaces every
// issue; the handler never sees invalid input.
func (b *Bound) Call(ctx context.Context, input any) (any, error) {
	validated, err := validate(b.def.Input, input)
	if err != nil {
		return nil, err
	}
	return b.def.Handler(ctx, validated, b.tctx)
}

// PluginBound is a plugin-level action bound to its plugin context.
type PluginBound struct {
	name string
	def  PluginDefinition
	pctx PluginContext
}

// BindPlugin binds a plugin-level definition to a plugin context.
func BindPlugin(name string, def PluginDefinition, pctx PluginContext) (*PluginBound, error) {
	if !schema.ValidName(name) {
		return nil, schema.Configf("invalid action name %q", name)
	}
	if def.Handler == nil {
		return nil, schema.Configf("action %q has no handler", name)
	}
	return &PluginBound{name: name, def: def, pctx: pctx}, nil
}

// Name returns the action name.
func (b *PluginBound) Name() string { return b.name }

// Kind returns the action kind.
func (b *PluginBound) Kind() Kind { return b.def.Kind }

// Call validates the raw input and invokes the handler with the plugin's
// table set.
func (b *PluginBound) Call(ctx context.Context, input any) (any, error) {
	validated, err := validate(b.def.Input, input)
	if err != nil {
		return nil, err
	}
	return b.def.Handler(ctx, validated, b.pctx)
}

func validate(v Validator, input any) (any, error) {
	if v == nil {
		return input, nil
	}
	validated, issues := v.Validate(input)
	if len(issues) > 0 {
		return nil, schema.NewValidationError(issues)
	}
	return validated, nil
}
