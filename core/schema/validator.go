package schema

import "errors"

// InputValidator validates free-form action input against a Definition.
// It satisfies the pluggable validator contract used by the action layer:
// accept unknown input, return either a typed value or a non-empty issue list.
type InputValidator struct {
	def *Definition
}

// NewInputValidator creates a validator backed by a field definition.
func NewInputValidator(def *Definition) *InputValidator {
	return &InputValidator{def: def}
}

// Validate checks the input and returns the normalized value, or the full
// list of issues when invalid.
func (v *InputValidator) Validate(value any) (any, []Issue) {
	var fields map[string]any
	switch in := value.(type) {
	case nil:
		fields = map[string]any{}
	case map[string]any:
		fields = in
	default:
		return nil, []Issue{{Message: "input must be an object"}}
	}

	normalized, err := v.def.Normalize(fields)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, verr.Issues
		}
		return nil, []Issue{{Message: err.Error()}}
	}
	return normalized, nil
}
