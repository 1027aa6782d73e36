package indexer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// stateDir holds symgraph's own files and is never analysed.
const stateDir = ".symgraph"

// pattern is a compiled glob plus, for "**/x" patterns, a variant matching x at the root.
type pattern struct {
	source string
	glob   glob.Glob
	root   glob.Glob
}

func compilePatterns(sources []string) ([]pattern, error) {
	out := make([]pattern, 0, len(sources))
	for _, src := range sources {
		g, err := glob.Compile(src, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
		}
		p := pattern{source: src, glob: g}
		if rest, ok := strings.CutPrefix(src, "**/"); ok {
			if p.root, err = glob.Compile(rest, '/'); err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func matchAny(relPath string, patterns []pattern) bool {
	atRoot := !strings.Contains(relPath, "/")
	for _, p := range patterns {
		if p.glob.Match(relPath) {
			return true
		}
		if atRoot && p.root != nil && p.root.Match(relPath) {
			return true
		}
	}
	return false
}

// FileDiscovery lists source files under a root using include and ignore globs.
type FileDiscovery struct {
	rootDir string
	include []pattern
	ignore  []pattern
	accept  func(path string) bool
}

// NewFileDiscovery compiles the patterns. With no include patterns every file
// is a candidate. accept, when non-nil, is a final filter (typically
// "some adapter claims this extension").
func NewFileDiscovery(rootDir string, include, ignore []string, accept func(path string) bool) (*FileDiscovery, error) {
	inc, err := compilePatterns(include)
	if err != nil {
		return nil, err
	}
	ign, err := compilePatterns(ignore)
	if err != nil {
		return nil, err
	}
	return &FileDiscovery{rootDir: rootDir, include: inc, ignore: ign, accept: accept}, nil
}

// DiscoverFiles walks the root and returns matching files, sorted.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && fd.ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.ignored(rel, false) {
			return nil
		}
		if len(fd.include) > 0 && !matchAny(rel, fd.include) {
			return nil
		}
		if fd.accept != nil && !fd.accept(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files under %s: %w", fd.rootDir, err)
	}

	slices.Sort(files)
	return files, nil
}

// ignored reports whether rel is excluded. A directory also matches
// patterns written as "dir/**".
func (fd *FileDiscovery) ignored(rel string, dir bool) bool {
	if rel == stateDir || strings.HasPrefix(rel, stateDir+"/") {
		return true
	}
	if matchAny(rel, fd.ignore) {
		return true
	}
	return dir && matchAny(rel+"/**", fd.ignore)
}
