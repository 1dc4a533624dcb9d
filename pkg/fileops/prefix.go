package fileops

import (
	"path/filepath"
	"strings"
)

// prefixSet tracks directories whose whole subtree is left out of a copy.
type prefixSet struct {
	prefixes []string
}

func newPrefixSet() *prefixSet {
	return &prefixSet{}
}

func (s *prefixSet) add(dir string) {
	s.prefixes = append(s.prefixes, dir+"/")
}

// covers reports whether rel lies below a skipped directory.
func (s *prefixSet) covers(rel string) bool {
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(rel, prefix) {
			return true
		}
	}

	return false
}

// within reports whether p is dir or lies below it. Both are real paths on
// the same filesystem.
func within(p, dir string) bool {
	p = filepath.ToSlash(p)
	dir = strings.TrimSuffix(filepath.ToSlash(dir), "/")

	return p == dir || dir == "" || strings.HasPrefix(p, dir+"/")
}
