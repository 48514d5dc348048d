package session

import "strings"

// entryPointMarkers are the substrings that make a wire name an entry
// point when present.
var entryPointMarkers = []string{"create", "list", "search", "get_status", "bootstrap"}

// IsEntryPoint reports whether wireName is an entry point: its lowercased
// form contains one of the markers above, or it has no required
// parameters.
func IsEntryPoint(wireName string, required []string) bool {
	lower := strings.ToLower(wireName)
	for _, marker := range entryPointMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return len(required) == 0
}

// IsDependent reports whether any required parameter name ends in "_id".
func IsDependent(required []string) bool {
	for _, name := range required {
		if strings.HasSuffix(name, "_id") {
			return true
		}
	}
	return false
}

// Prerequisites is a static mapping from a gating tool's original name to
// the original-name tools it gates. The reference
// mapping's canonical entry is preserved as a documented example but the
// map is caller-supplied so deployments can define their own gates.
type Prerequisites map[string][]string

// DefaultPrerequisites is the reference gating used when no deployment
// override is configured.
func DefaultPrerequisites() Prerequisites {
	return Prerequisites{
		"set_project_root": {"run_tests", "list_tests", "analyze_coverage"},
	}
}

// gatedBy returns the gating tool name for originalName, if any.
func (p Prerequisites) gatedBy(originalName string) (string, bool) {
	for gate, gated := range p {
		for _, name := range gated {
			if name == originalName {
				return gate, true
			}
		}
	}
	return "", false
}

// Visibility is the outcome of the per-tool visibility algorithm.
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

// ToolInfo is the subset of a tool's shape the visibility algorithm needs.
type ToolInfo struct {
	WireName     string
	OriginalName string
	Required     []string // required parameter names
}

// requiredIDParams returns the subset of required that end in "_id".
func requiredIDParams(required []string) []string {
	var out []string
	for _, name := range required {
		if strings.HasSuffix(name, "_id") {
			out = append(out, name)
		}
	}
	return out
}

// Classify runs the enhanced visibility algorithm for one
// tool against the current session state and gating configuration.
func Classify(tool ToolInfo, state *State, prereqs Prerequisites) Visibility {
	if gate, gated := prereqs.gatedBy(tool.OriginalName); gated {
		if !state.IsPrerequisiteCalled(gate) {
			return Hidden
		}
	}

	if IsEntryPoint(tool.WireName, tool.Required) {
		return Visible
	}

	if IsDependent(tool.Required) {
		idParams := requiredIDParams(tool.Required)
		allSeen := true
		for _, key := range idParams {
			if !state.HasAnyID(key) {
				allSeen = false
				break
			}
		}
		if allSeen {
			return Visible
		}
		prefix := ExtractPrefix(tool.OriginalName)
		if state.HasCreated(prefix) {
			return Visible
		}
		return Hidden
	}

	return Visible
}
