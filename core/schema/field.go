package schema

// Field defines a data field in a table's schema.
type Field struct {
	// Type is the field type. See FieldType constants.
	Type FieldType `yaml:"type"`

	// Required indicates this field must be provided on create.
	// A field with a Default is never required: the default fills it.
	Required bool `yaml:"required,omitempty"`

	// Default value applied when the field is absent.
	Default any `yaml:"default,omitempty"`

	// Unique indicates this field must have unique values within its table.
	Unique bool `yaml:"unique,omitempty"`

	// References names the table this field points at (foreign key for the
	// relational mirror; existence of the target record is not checked here).
	References string `yaml:"references,omitempty"`
}

// FieldType represents the type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBool    FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeObject  FieldType = "object"
	TypeStrings FieldType = "string[]"
	TypeNumbers FieldType = "number[]"
	TypeBools   FieldType = "boolean[]"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBool, TypeDate, TypeObject,
		TypeStrings, TypeNumbers, TypeBools:
		return true
	default:
		return false
	}
}

// IsArray reports whether t is one of the homogeneous array types.
func (t FieldType) IsArray() bool {
	switch t {
	case TypeStrings, TypeNumbers, TypeBools:
		return true
	default:
		return false
	}
}

// IsRequired returns whether the field must be provided on create.
// A default value always satisfies the field, so Default wins over Required.
func (f Field) IsRequired() bool {
	if f.Default != nil {
		return false
	}
	return f.Required
}

// SQLType returns the relational-mirror column type for this field.
func (f Field) SQLType() string {
	switch f.Type {
	case TypeNumber:
		return "REAL"
	case TypeBool:
		return "INTEGER"
	case TypeObject, TypeStrings, TypeNumbers, TypeBools:
		return "TEXT" // stored as JSON
	default:
		return "TEXT"
	}
}
