/*
Package schema defines the field-type vocabulary and per-field constraints
for vault tables, and normalizes candidate field maps against a definition.

A table schema is an ordered set of named fields:

	def, err := schema.NewDefinition([]schema.FieldDef{
		{Name: "title", Field: schema.Field{Type: schema.TypeString, Required: true}},
		{Name: "score", Field: schema.Field{Type: schema.TypeNumber, Default: 0}},
	})

Normalization applies defaults, coerces values to their declared types, and
reports every offending field at once rather than stopping at the first.

# Field Types

  - string:    text value
  - number:    numeric value (stored as float64)
  - boolean:   true/false
  - date:      ISO-8601 string or time.Time, normalized to UTC time.Time
  - object:    free-form map
  - string[]:  homogeneous array of strings
  - number[]:  homogeneous array of numbers
  - boolean[]: homogeneous array of booleans

The field names "id" and "content" are implicit on every record and may not
appear in a definition. Unknown fields on a record pass through untouched;
they are preserved but never schema-checked.
*/
package schema
