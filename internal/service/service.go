// Package service owns the catalog set, its tombstones, the active definition
// file and the derived tree.
//
// A Service is not safe for concurrent use. One instance serves one document or
// session; callers that share it must serialize access themselves.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/RoaringBitmap/roaring"
	billy "github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/agentic-research/assetcat/internal/cdf"
	"github.com/agentic-research/assetcat/internal/tree"
)

var (
	// ErrNotFound is returned for operations on an id that names no live catalog.
	ErrNotFound = errors.New("catalog not found")

	// ErrDefinitionFileActive is returned when loading a definition file while
	// another one is already bound to the service.
	ErrDefinitionFileActive = errors.New("a catalog definition file is already loaded")

	// ErrNoHostDocument is returned when saving without a host document path.
	ErrNoHostDocument = errors.New("a host document path is required to choose a definition file location")
)

// RootResolver picks the library root a new definition file should live in,
// given the path of the host document being saved.
type RootResolver interface {
	SuitableRoot(docPath string) string
}

// RootResolverFunc adapts a function to RootResolver.
type RootResolverFunc func(docPath string) string

// SuitableRoot implements RootResolver.
func (f RootResolverFunc) SuitableRoot(docPath string) string { return f(docPath) }

// DocumentDir is the fallback resolver: the directory holding the document.
var DocumentDir = RootResolverFunc(filepath.Dir)

// Service is the catalog store.
//
// Every catalog ever registered stays in the arena for the life of the service;
// its ordinal is its index there. Deleted catalogs keep their slot with
// IsDeleted set, which is what stops a later merge from resurrecting them.
type Service struct {
	fs       billy.Filesystem
	log      *slog.Logger
	resolver RootResolver
	filename string
	version  int

	arena    []*catalog.Catalog
	ordinals map[catalog.ID]uint32
	live     *roaring.Bitmap

	file *cdf.File
	tree *tree.Tree
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sends diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRootResolver sets the resolver used to place new definition files.
func WithRootResolver(r RootResolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithDefaultFilename overrides cdf.DefaultFilename.
func WithDefaultFilename(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.filename = name
		}
	}
}

// WithVersion overrides cdf.SupportedVersion.
func WithVersion(v int) Option {
	return func(s *Service) {
		if v > 0 {
			s.version = v
		}
	}
}

// New returns an empty service whose definition files live on fs.
func New(fs billy.Filesystem, opts ...Option) *Service {
	s := &Service{
		fs:       fs,
		log:      slog.New(slog.DiscardHandler),
		resolver: DocumentDir,
		filename: cdf.DefaultFilename,
		version:  cdf.SupportedVersion,
		ordinals: make(map[catalog.ID]uint32),
		live:     roaring.New(),
		tree:     tree.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IsEmpty reports whether there are no live catalogs.
func (s *Service) IsEmpty() bool { return s.live.IsEmpty() }

// Tree returns the current tree. It is replaced, not mutated, by rebuilds.
func (s *Service) Tree() *tree.Tree { return s.tree }

// DefinitionFile returns the bound definition file, or nil.
func (s *Service) DefinitionFile() *cdf.File { return s.file }

// Ordinal implements catalog.Indexer.
func (s *Service) Ordinal(id catalog.ID) (uint32, bool) {
	ord, ok := s.ordinals[id]
	return ord, ok
}

// IDAt implements catalog.Indexer.
func (s *Service) IDAt(ord uint32) catalog.ID { return s.arena[ord].ID }

// FindByID returns the live catalog with id, or nil.
func (s *Service) FindByID(id catalog.ID) *catalog.Catalog {
	ord, ok := s.ordinals[id]
	if !ok || !s.live.Contains(ord) {
		return nil
	}
	return s.arena[ord]
}

// FindByPath returns the first live catalog at p, or nil.
func (s *Service) FindByPath(p catalog.Path) *catalog.Catalog {
	for _, c := range s.Catalogs() {
		if c.Path == p {
			return c
		}
	}
	return nil
}

// Catalogs returns the live catalogs in registration order.
func (s *Service) Catalogs() []*catalog.Catalog {
	out := make([]*catalog.Catalog, 0, s.live.GetCardinality())
	it := s.live.Iterator()
	for it.HasNext() {
		out = append(out, s.arena[it.Next()])
	}
	return out
}

// Tombstones returns the catalogs deleted during this session.
func (s *Service) Tombstones() []*catalog.Catalog {
	var out []*catalog.Catalog
	for _, c := range s.arena {
		if c.IsDeleted {
			out = append(out, c)
		}
	}
	return out
}

// register adds c to the arena as a live catalog. Callers guarantee c.ID is new.
func (s *Service) register(c *catalog.Catalog) {
	ord := uint32(len(s.arena))
	s.arena = append(s.arena, c)
	s.ordinals[c.ID] = ord
	s.live.Add(ord)
}

// rollback forgets every catalog registered at or after arena position mark.
func (s *Service) rollback(mark int) {
	if mark >= len(s.arena) {
		return
	}
	for _, c := range s.arena[mark:] {
		delete(s.ordinals, c.ID)
	}
	s.live.RemoveRange(uint64(mark), uint64(len(s.arena)))
	clear(s.arena[mark:])
	s.arena = s.arena[:mark]
}

// create registers a new catalog at p without touching the tree.
func (s *Service) create(p catalog.Path) *catalog.Catalog {
	c := catalog.New(p)
	for _, taken := s.ordinals[c.ID]; taken; _, taken = s.ordinals[c.ID] {
		c.ID = uuid.New()
	}
	s.register(c)
	if s.file != nil {
		s.file.Add(c)
	}
	return c
}

// CreateCatalog adds a catalog at p with a fresh id and a label derived from p.
// It is referenced by the bound definition file, if any, and inserted into the
// tree directly.
func (s *Service) CreateCatalog(p catalog.Path) *catalog.Catalog {
	c := s.create(p)
	s.tree.Insert(c)
	return c
}

// DeleteCatalog soft-deletes the catalog with id. Unknown ids are ignored.
func (s *Service) DeleteCatalog(id catalog.ID) {
	c := s.FindByID(id)
	if c == nil {
		return
	}
	c.IsDeleted = true
	s.live.Remove(s.ordinals[id])
	s.RebuildTree()
}

// RenameCatalog moves the catalog with id to newPath. Every live catalog whose
// path equals or lies below the old path moves along with it; the match is on
// paths, not on any tracked parent/child relation.
func (s *Service) RenameCatalog(id catalog.ID, newPath catalog.Path) error {
	renamed := s.FindByID(id)
	if renamed == nil {
		return fmt.Errorf("rename %s: %w", id, ErrNotFound)
	}
	oldPath := renamed.Path
	for _, c := range s.Catalogs() {
		if p, ok := c.Path.Rebase(oldPath, newPath); ok {
			c.Path = p
		}
	}
	s.RebuildTree()
	return nil
}

// BuildFilter returns a filter matching active and every live catalog at or
// below its path. An unknown active id still matches itself.
func (s *Service) BuildFilter(active catalog.ID) *catalog.Filter {
	matching := roaring.New()
	if a := s.FindByID(active); a != nil {
		it := s.live.Iterator()
		for it.HasNext() {
			ord := it.Next()
			if s.arena[ord].Path.IsContainedIn(a.Path) {
				matching.Add(ord)
			}
		}
	}
	return catalog.NewFilter(active, matching, s)
}

// RebuildTree materializes missing ancestors, then rebuilds the tree from the
// live catalogs.
func (s *Service) RebuildTree() {
	s.synthesizeMissingAncestors()
	t := tree.New()
	for _, c := range s.Catalogs() {
		t.Insert(c)
	}
	s.tree = t
}

// synthesizeMissingAncestors creates a catalog for every proper prefix of a live
// catalog path that has none. The root path is never materialized.
func (s *Service) synthesizeMissingAncestors() {
	existing := map[catalog.Path]struct{}{{}: {}}
	for _, c := range s.Catalogs() {
		existing[c.Path] = struct{}{}
	}
	queue := make([]catalog.Path, 0, len(existing))
	for p := range existing {
		queue = append(queue, p)
	}
	// Sorted only so new catalogs are created in a stable order; the result does
	// not depend on it.
	slices.SortFunc(queue, func(a, b catalog.Path) int { return a.Compare(b) })

	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		parent := p.Parent()
		if _, ok := existing[parent]; ok {
			continue
		}
		c := s.create(parent)
		existing[parent] = struct{}{}
		queue = append(queue, parent)
		s.log.Debug("created missing parent catalog", "path", parent, "id", c.ID)
	}
}
