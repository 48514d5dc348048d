// Package toolfilter implements glob-based allow/block filtering of a
// server's advertised tools.
package toolfilter

import (
	"regexp"
	"strings"
	"sync"
)

// Filter holds a server's optional allow/block glob pattern lists.
// Patterns support only the wildcard "*" (zero-or-more of any character);
// every other character is escaped before compilation.
type Filter struct {
	Allowed []string
	Blocked []string
}

var (
	compileCacheMu sync.Mutex
	compileCache   = map[string]*regexp.Regexp{}
)

// compile turns a glob pattern into an anchored regexp, caching the result
// per pattern since filters are re-applied on every tool-list refresh.
func compile(pattern string) *regexp.Regexp {
	compileCacheMu.Lock()
	defer compileCacheMu.Unlock()
	if re, ok := compileCache[pattern]; ok {
		return re
	}
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		if r == '*' {
			b.WriteString(".*")
		} else {
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re := regexp.MustCompile(b.String())
	compileCache[pattern] = re
	return re
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if compile(p).MatchString(name) {
			return true
		}
	}
	return false
}

// Apply filters originalNames (a tool's upstream-local name, not the
// namespaced wire name): with neither list present the input is returned
// unchanged; otherwise an allowed list restricts first, and a blocked
// list then removes matches regardless of the allow result.
// Apply is idempotent: Apply(Apply(names, f), f) == Apply(names, f).
func (f Filter) Apply(originalNames []string) []string {
	if len(f.Allowed) == 0 && len(f.Blocked) == 0 {
		return originalNames
	}
	result := originalNames
	if len(f.Allowed) > 0 {
		kept := make([]string, 0, len(result))
		for _, name := range result {
			if matchesAny(name, f.Allowed) {
				kept = append(kept, name)
			}
		}
		result = kept
	}
	if len(f.Blocked) > 0 {
		kept := make([]string, 0, len(result))
		for _, name := range result {
			if !matchesAny(name, f.Blocked) {
				kept = append(kept, name)
			}
		}
		result = kept
	}
	return result
}

// Allows reports whether a single tool name survives the filter.
func (f Filter) Allows(name string) bool {
	if len(f.Allowed) > 0 && !matchesAny(name, f.Allowed) {
		return false
	}
	if len(f.Blocked) > 0 && matchesAny(name, f.Blocked) {
		return false
	}
	return true
}

