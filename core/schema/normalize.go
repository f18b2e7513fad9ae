package schema

import (
	"fmt"
	"time"
)

// dateLayouts are accepted on input. Dates always normalize to UTC time.Time.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize validates a candidate field map against the definition.
// It applies defaults for absent fields, coerces present values to their
// declared types, and passes unknown fields through untouched. On failure it
// returns a ValidationError listing every offending field.
func (d *Definition) Normalize(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields)+d.Len())
	verr := &ValidationError{}

	for _, fd := range d.fields {
		value, present := fields[fd.Name]
		if !present || value == nil {
			if fd.Field.Default != nil {
				out[fd.Name] = fd.Field.Default
				continue
			}
			if fd.Field.Required {
				verr.Add(fd.Name, "field is required")
			}
			continue
		}
		coerced, err := coerce(fd.Field.Type, value)
		if err != nil {
			verr.Add(fd.Name, "%v", err)
			continue
		}
		out[fd.Name] = coerced
	}

	// Forward-compatible passthrough for unknown fields.
	for name, value := range fields {
		if !d.Has(name) {
			out[name] = value
		}
	}

	if len(verr.Issues) > 0 {
		return nil, verr
	}
	return out, nil
}

// Coerce converts a single value to the declared type of the named field.
// Unknown fields are returned unchanged.
func (d *Definition) Coerce(name string, value any) (any, error) {
	f, ok := d.Field(name)
	if !ok {
		return value, nil
	}
	return coerce(f.Type, value)
}

func coerce(t FieldType, value any) (any, error) {
	switch t {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil

	case TypeNumber:
		return toNumber(value)

	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}
		return b, nil

	case TypeDate:
		return toDate(value)

	case TypeObject:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", value)
		}
		return m, nil

	case TypeStrings:
		return toArray(value, func(v any) (string, error) {
			s, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("expected string element, got %T", v)
			}
			return s, nil
		})

	case TypeNumbers:
		return toArray(value, func(v any) (float64, error) {
			return toNumber(v)
		})

	case TypeBools:
		return toArray(value, func(v any) (bool, error) {
			b, ok := v.(bool)
			if !ok {
				return false, fmt.Errorf("expected boolean element, got %T", v)
			}
			return b, nil
		})

	default:
		return nil, fmt.Errorf("unknown field type %q", t)
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}

func toDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	default:
		return time.Time{}, fmt.Errorf("expected date, got %T", value)
	}
}

func toArray[T any](value any, elem func(any) (T, error)) ([]T, error) {
	switch v := value.(type) {
	case []T:
		out := make([]T, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]T, 0, len(v))
		for i, raw := range v {
			e, err := elem(raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %v", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected array, got %T", value)
	}
}
