package backup

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeFilter implements fileops.Filter by rejecting paths that match any
// of a set of glob patterns. Matching is case-insensitive and uses
// doublestar syntax, so "**/*.tmp" and "cache/**" work as expected.
type ExcludeFilter struct {
	patterns []string
}

// NewExcludeFilter creates a filter for the given patterns. Blank patterns
// are ignored; nil is returned when nothing is left to exclude.
func NewExcludeFilter(patterns []string) *ExcludeFilter {
	normalized := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, strings.ToLower(pattern))
	}

	if len(normalized) == 0 {
		return nil
	}

	return &ExcludeFilter{patterns: normalized}
}

// ShouldInclude returns false if relativePath matches an exclude pattern.
// Invalid patterns never match.
func (f *ExcludeFilter) ShouldInclude(relativePath string) bool {
	if f == nil {
		return true
	}

	normalizedPath := strings.ToLower(relativePath)

	for _, pattern := range f.patterns {
		matched, err := doublestar.Match(pattern, normalizedPath)
		if err == nil && matched {
			return false
		}
	}

	return true
}

// ValidatePatterns reports the first syntactically invalid pattern.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}

	return nil
}
