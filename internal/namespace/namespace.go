// Package namespace implements the bidirectional mapping between
// (server, tool) pairs and a flat, unique wire name.
package namespace

import "strings"

// DefaultSeparator is used when a ResolvedConfig does not override it.
const DefaultSeparator = "__"

// Join returns the wire name for a tool owned by server, e.g.
// Join("vitest", "run_tests", "__") == "vitest__run_tests".
func Join(server, tool, sep string) string {
	return server + sep + tool
}

// Parse resolves a wire name back to (server, tool) against the set of
// known server names. It sorts candidates by length descending and returns
// the first whose server+sep is a literal prefix of wireName — a greedy
// longest-prefix match that resolves the ambiguity when one server name is
// itself a prefix of another.
//
// If no known server's prefix matches, ok is false and the caller should
// treat wireName as unnamespaced.
func Parse(wireName string, knownServers []string, sep string) (server, tool string, ok bool) {
	candidates := make([]string, len(knownServers))
	copy(candidates, knownServers)
	// Stable greedy longest-prefix: sort by name length descending.
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && len(candidates[j-1]) < len(candidates[j]) {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}
	for _, srv := range candidates {
		prefix := srv + sep
		if strings.HasPrefix(wireName, prefix) {
			return srv, strings.TrimPrefix(wireName, prefix), true
		}
	}
	return "", "", false
}

// Strip removes the server+sep prefix from wireName if present, else
// returns wireName unchanged.
func Strip(wireName, server, sep string) string {
	prefix := server + sep
	if strings.HasPrefix(wireName, prefix) {
		return strings.TrimPrefix(wireName, prefix)
	}
	return wireName
}
