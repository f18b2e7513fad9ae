package table

import (
	"fmt"
	"reflect"
	"time"

	"github.com/artpar/vaultkit/core/schema"
)

// splitContent extracts the reserved "content" key from a field map. The
// reserved "id" key is dropped: ids are minted by the engine, never supplied.
func splitContent(fields map[string]any) (string, map[string]any) {
	body := ""
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		switch name {
		case schema.FieldContent:
			if s, ok := value.(string); ok {
				body = s
			}
		case schema.FieldID:
		default:
			out[name] = value
		}
	}
	return body, out
}

func valuesEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// compareValues defines a total order over field values. Values of the same
// type compare naturally; values of different types compare by type name so
// the order stays deterministic.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			default:
				return 0
			}
		}
	}

	ta, tb := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	if ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
