package schema

import (
	"regexp"
)

// Reserved field names. Every record carries them implicitly.
const (
	FieldID      = "id"
	FieldContent = "content"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidName reports whether s is a valid plugin, table, or field name.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// FieldDef pairs a field name with its definition, preserving declaration order.
type FieldDef struct {
	Name  string
	Field Field
}

// Definition is an ordered mapping from field name to Field.
type Definition struct {
	fields []FieldDef
	index  map[string]int
}

// NewDefinition builds a Definition, validating every field declaration.
// Unknown field types, reserved names, duplicate names, and defaults that do
// not match their declared type are all configuration errors.
func NewDefinition(fields []FieldDef) (*Definition, error) {
	def := &Definition{
		fields: make([]FieldDef, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, fd := range fields {
		if fd.Name == FieldID || fd.Name == FieldContent {
			return nil, Configf("field name %q is reserved", fd.Name)
		}
		if !ValidName(fd.Name) {
			return nil, Configf("invalid field name %q", fd.Name)
		}
		if _, dup := def.index[fd.Name]; dup {
			return nil, Configf("duplicate field %q", fd.Name)
		}
		if !fd.Field.Type.Valid() {
			return nil, Configf("field %q: unknown type %q", fd.Name, fd.Field.Type)
		}
		if fd.Field.Default != nil {
			coerced, err := coerce(fd.Field.Type, fd.Field.Default)
			if err != nil {
				return nil, Configf("field %q: default %v does not match type %s",
					fd.Name, fd.Field.Default, fd.Field.Type)
			}
			fd.Field.Default = coerced
		}
		def.index[fd.Name] = len(def.fields)
		def.fields = append(def.fields, fd)
	}
	return def, nil
}

// MustDefinition is NewDefinition that panics on error, for static declarations.
func MustDefinition(fields []FieldDef) *Definition {
	def, err := NewDefinition(fields)
	if err != nil {
		panic(err)
	}
	return def
}

// Field returns the definition of the named field.
func (d *Definition) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i].Field, true
}

// Fields returns the field definitions in declaration order.
func (d *Definition) Fields() []FieldDef {
	out := make([]FieldDef, len(d.fields))
	copy(out, d.fields)
	return out
}

// Names returns the field names in declaration order.
func (d *Definition) Names() []string {
	names := make([]string, len(d.fields))
	for i, fd := range d.fields {
		names[i] = fd.Name
	}
	return names
}

// Has reports whether the named field is declared.
func (d *Definition) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Len returns the number of declared fields.
func (d *Definition) Len() int {
	return len(d.fields)
}
