package protocol

import "fmt"

// ToolRequest gives a tool handler typed access to its JSON arguments.
type ToolRequest struct {
	args map[string]interface{}
}

func NewToolRequest(args map[string]interface{}) *ToolRequest {
	if args == nil {
		args = map[string]interface{}{}
	}
	return &ToolRequest{args: args}
}

func (r *ToolRequest) Args() map[string]interface{} { return r.args }

func (r *ToolRequest) String(name string) (string, error) {
	val, ok := r.args[name]
	if !ok {
		return "", ErrUnknownParameter
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("parameter %q is not a string", name)
}

func (r *ToolRequest) StringOr(name, defaultValue string) string {
	if v, err := r.String(name); err == nil {
		return v
	}
	return defaultValue
}

func (r *ToolRequest) Int(name string) (int, error) {
	val, ok := r.args[name]
	if !ok {
		return 0, ErrUnknownParameter
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q is not a number", name)
	}
}

func (r *ToolRequest) IntOr(name string, defaultValue int) int {
	if v, err := r.Int(name); err == nil {
		return v
	}
	return defaultValue
}

func (r *ToolRequest) Bool(name string) (bool, error) {
	val, ok := r.args[name]
	if !ok {
		return false, ErrUnknownParameter
	}
	if b, ok := val.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("parameter %q is not a boolean", name)
}

func (r *ToolRequest) BoolOr(name string, defaultValue bool) bool {
	if v, err := r.Bool(name); err == nil {
		return v
	}
	return defaultValue
}

func (r *ToolRequest) Object(name string) (map[string]interface{}, error) {
	val, ok := r.args[name]
	if !ok {
		return nil, ErrUnknownParameter
	}
	if obj, ok := val.(map[string]interface{}); ok {
		return obj, nil
	}
	return nil, fmt.Errorf("parameter %q is not an object", name)
}
