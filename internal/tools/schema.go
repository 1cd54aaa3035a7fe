package tools

import (
	"fmt"
	"math"
	"sort"
)

// ParamType enumerates the accepted parameter kinds.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param declares one tool parameter.
type Param struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
}

// Schema maps parameter names to their declarations.
type Schema map[string]Param

// Validate checks args against the schema: required parameters must be
// present and every supplied value must match its declared type.
// Unknown argument names are rejected. A nil schema declares nothing
// and accepts any arguments.
func (s Schema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}
	var missing []string
	for name, p := range s {
		if !p.Required {
			continue
		}
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required parameters: %v", missing)
	}

	for name, value := range args {
		p, ok := s[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if value == nil {
			continue
		}
		if err := checkType(p.Type, value); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}

// checkType validates a decoded JSON value against a declared kind.
// JSON numbers decode as float64, so integer checks accept whole floats.
func checkType(t ParamType, v any) error {
	switch t {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("want string, got %T", v)
		}
	case TypeInteger:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("want integer, got %T", v)
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("want integer, got %v", f)
		}
	case TypeNumber:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("want number, got %T", v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("want boolean, got %T", v)
		}
	case TypeArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("want array, got %T", v)
		}
	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("want object, got %T", v)
		}
	default:
		return fmt.Errorf("unsupported parameter type %q", t)
	}
	return nil
}
