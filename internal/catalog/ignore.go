package catalog

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFunc decides whether a path should be hidden from the catalog.
type IgnoreFunc func(path string) bool

// defaultIgnore hides any path with a dot- or underscore-prefixed
// *component*, not any path that merely contains ".foo" or "_bar" as a
// substring somewhere. Each separator-split component is checked on its
// own rather than matching the joined path against a single glob.
func defaultIgnore(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}

// buildIgnore composes the default component-based policy with operator
// supplied gitignore-style patterns (DEWEY_IGNORE_EXTRA). Patterns match
// against the path relative to the catalog root.
func buildIgnore(root string, extra []string) IgnoreFunc {
	var gi *ignore.GitIgnore
	if len(extra) > 0 {
		gi = ignore.CompileIgnoreLines(extra...)
	}
	return func(path string) bool {
		if defaultIgnore(path) {
			return true
		}
		if gi == nil {
			return false
		}
		rel := strings.TrimPrefix(path, root)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" {
			return false
		}
		return gi.MatchesPath(rel)
	}
}
