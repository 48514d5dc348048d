package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParamSchema is the subset of a tool's input schema needed for argument
// assembly: property names, their declared JSON type, default value, and
// whether each is required.
type ParamSchema struct {
	Name     string
	Type     string // "string", "number", "integer", "boolean", "array", "object"
	Default  interface{}
	Required bool
}

// Prompter asks the user for a value for a missing required parameter,
// once per parameter. An empty answer aborts the call.
type Prompter func(paramName string) (answer string, ok bool)

// AssembleArgs implements the argument assembly pipeline: parse
// userRemainder, fill in defaults, backfill from session history, and
// prompt for anything still missing. prompt may be nil, in which case
// a required parameter still missing after the backfill aborts assembly
// with a "missing required parameter" error. Malformed userRemainder JSON aborts assembly
// with a friendly error instead of silently dropping the user's input —
// the call must not be dispatched in that case.
func AssembleArgs(userRemainder string, schema []ParamSchema, state *State, prompt Prompter) (map[string]interface{}, error) {
	args := map[string]interface{}{}

	for _, p := range schema {
		if p.Default != nil {
			args[p.Name] = p.Default
		}
	}

	if strings.TrimSpace(userRemainder) != "" {
		var userArgs map[string]interface{}
		if err := json.Unmarshal([]byte(userRemainder), &userArgs); err != nil {
			return nil, fmt.Errorf("invalid JSON arguments: %w", err)
		}
		for k, v := range userArgs {
			args[k] = v
		}
	}

	for _, p := range schema {
		if !p.Required {
			continue
		}
		if _, present := args[p.Name]; present {
			continue
		}
		if p.Name == "id" || strings.HasSuffix(p.Name, "_id") {
			if value, ok := state.LatestID(p.Name); ok {
				args[p.Name] = value
				continue
			}
		}
	}

	for _, p := range schema {
		if !p.Required {
			continue
		}
		if _, present := args[p.Name]; present {
			continue
		}
		if prompt == nil {
			return nil, fmt.Errorf("missing required parameter %q", p.Name)
		}
		answer, ok := prompt(p.Name)
		if !ok || answer == "" {
			return nil, fmt.Errorf("missing required parameter %q", p.Name)
		}
		args[p.Name] = coerce(p.Type, answer)
	}

	return args, nil
}

// coerce converts a typed-in answer string to the schema-declared shape.
func coerce(paramType, answer string) interface{} {
	switch paramType {
	case "number":
		if f, err := strconv.ParseFloat(answer, 64); err == nil {
			return f
		}
		return answer
	case "integer":
		if i, err := strconv.ParseInt(answer, 10, 64); err == nil {
			return i
		}
		return answer
	case "boolean":
		return answer == "true" || answer == "1"
	case "array", "object":
		var v interface{}
		if err := json.Unmarshal([]byte(answer), &v); err == nil {
			return v
		}
		return answer
	default:
		return answer
	}
}
