package library

import (
	"path/filepath"
	"strings"
)

// Resolver places new definition files at the root of the library holding
// the document. Documents outside every library keep their file next to them.
type Resolver struct {
	libs []Library
}

// NewResolver returns a Resolver over the configured libraries.
func NewResolver(cfg *Config) *Resolver {
	return &Resolver{libs: cfg.Libraries}
}

// SuitableRoot implements service.RootResolver. With nested libraries the
// innermost one wins.
func (r *Resolver) SuitableRoot(docPath string) string {
	doc := filepath.Clean(docPath)
	best := ""
	for _, lib := range r.libs {
		if within(doc, lib.Path) && len(lib.Path) > len(best) {
			best = lib.Path
		}
	}
	if best == "" {
		return filepath.Dir(doc)
	}
	return best
}

// LibraryFor returns the library holding docPath.
func (r *Resolver) LibraryFor(docPath string) (Library, bool) {
	root := r.SuitableRoot(docPath)
	for _, lib := range r.libs {
		if lib.Path == root {
			return lib, true
		}
	}
	return Library{}, false
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
