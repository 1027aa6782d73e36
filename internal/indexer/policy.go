package indexer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DenyList matches files that are never read, by base name.
type DenyList struct {
	globs []glob.Glob
}

// NewDenyList compiles base-name patterns such as ".env" or "id_rsa*".
// Matching ignores case.
func NewDenyList(patterns []string) (*DenyList, error) {
	d := &DenyList{}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", p, err)
		}
		d.globs = append(d.globs, g)
	}
	return d, nil
}

// Match reports whether path names a denied file. A nil list denies nothing.
func (d *DenyList) Match(path string) bool {
	if d == nil {
		return false
	}
	base := strings.ToLower(filepath.Base(path))
	for _, g := range d.globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}
