package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Rules are tried in order; the first category with a matching pattern wins.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		rules: []matchRule{
			{CategorySource, []string{"source not found"}},
			{CategoryConfig, []string{"invalid config", "no valid entries", "destination_root is missing"}},
			{CategoryRemote, []string{"ssh: handshake failed", "unable to authenticate", "knownhosts", "connection refused"}},
			{CategoryPermission, []string{"permission denied", "access denied", "operation not permitted"}},
			{CategoryDiskSpace, []string{"no space left on device", "disk full", "quota exceeded"}},
			{CategoryPath, []string{"no such file or directory", "file not found", "path does not exist", "not a directory"}},
			{CategoryDelete, []string{"directory not empty", "cannot remove", "failed to remove"}},
			{CategoryCopy, []string{"short write", "input/output error", "i/o error"}},
		},
	}
}

type matchRule struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	rules []matchRule
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, rule := range m.rules {
		for _, pattern := range rule.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return rule.category
			}
		}
	}

	return CategoryUnknown
}
