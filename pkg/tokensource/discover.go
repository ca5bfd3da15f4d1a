package tokensource

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// AutoDiscoverPatterns are the file names token sets conventionally live
// under, relative to the discovery root.
var AutoDiscoverPatterns = []string{
	"**/tokens.json",
	"**/*.tokens.json",
	"**/design-tokens.json",
	"**/tokens.yaml",
	"**/*.tokens.yaml",
	"**/design-tokens.yaml",
	"**/tokens.yml",
	"**/*.tokens.yml",
	"**/design-tokens.yml",
	"**/tokens.css",
	"**/*.tokens.css",
	"**/theme.css",
}

// DefaultExcludes are directories never searched for token files.
var DefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	"coverage/**",
	"out/**",
	".next/**",
	".tokenlens/**",
}

// Discover walks root for conventionally named token files and returns
// them as sources in stable path order. Extra patterns extend the
// defaults; excludes replace them when non-nil.
func Discover(root string, extra []string, excludes []string) ([]Source, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve discovery root: %w", err)
	}
	patterns := append(append([]string{}, AutoDiscoverPatterns...), extra...)
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid discovery pattern %q", p)
		}
	}
	if excludes == nil {
		excludes = DefaultExcludes
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range excludes {
			if ok, _ := doublestar.PathMatch(pattern, rel); ok {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.IsDir() {
			return nil
		}
		for _, pattern := range patterns {
			if ok, _ := doublestar.PathMatch(pattern, rel); ok {
				paths = append(paths, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}

	sort.Strings(paths)
	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = Source{Path: p}
	}
	return sources, nil
}

// IsTokenFile reports whether path matches one of the auto-discovery
// patterns, regardless of directory.
func IsTokenFile(path string) bool {
	base := filepath.Base(filepath.ToSlash(path))
	for _, pattern := range AutoDiscoverPatterns {
		if ok, _ := doublestar.PathMatch(strings.TrimPrefix(pattern, "**/"), base); ok {
			return true
		}
	}
	return false
}
