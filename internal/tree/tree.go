// Package tree projects catalogs into a name-keyed hierarchy for navigation.
//
// Items live in a flat arena and refer to each other by Handle, so the arena can
// grow without invalidating parent links. A Tree is always derived data: callers
// rebuild it from the authoritative catalog set rather than patching it, with
// Insert as the single incremental operation.
package tree

import (
	"slices"
	"strings"

	"github.com/agentic-research/assetcat/internal/catalog"
)

// Handle indexes an item in its tree's arena.
type Handle int32

// NoHandle is the parent of root items.
const NoHandle Handle = -1

// Item is one level of the hierarchy. CatalogID is catalog.NilID for a pure
// intermediate item that no catalog has claimed yet.
type Item struct {
	Name      string
	CatalogID catalog.ID
	Label     string
	Parent    Handle

	children []Handle // ordered by name
}

// Tree is an arena of items plus the ordered set of root items.
type Tree struct {
	items []Item
	roots []Handle // ordered by name
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Len returns the number of items.
func (t *Tree) Len() int { return len(t.items) }

// Item returns the item for h. The pointer is valid until the next Insert.
func (t *Tree) Item(h Handle) *Item { return &t.items[h] }

// Insert adds the items along c.Path and attaches c to the last one. An item
// that already exists for that path as a placeholder adopts c's id and label;
// an item already owned by another catalog keeps its owner.
func (t *Tree) Insert(c *catalog.Catalog) {
	parent := NoHandle
	c.Path.Components(func(name string, isLast bool) {
		h, found := t.child(parent, name)
		if !found {
			h = t.add(parent, name)
		}
		if isLast && t.items[h].CatalogID == catalog.NilID {
			t.items[h].CatalogID = c.ID
			t.items[h].Label = c.Label
		}
		parent = h
	})
}

// siblings returns the ordered children of parent, or the roots for NoHandle.
func (t *Tree) siblings(parent Handle) []Handle {
	if parent == NoHandle {
		return t.roots
	}
	return t.items[parent].children
}

func (t *Tree) search(parent Handle, name string) (int, bool) {
	return slices.BinarySearchFunc(t.siblings(parent), name, func(h Handle, name string) int {
		return strings.Compare(t.items[h].Name, name)
	})
}

func (t *Tree) child(parent Handle, name string) (Handle, bool) {
	i, found := t.search(parent, name)
	if !found {
		return NoHandle, false
	}
	return t.siblings(parent)[i], true
}

func (t *Tree) add(parent Handle, name string) Handle {
	h := Handle(len(t.items))
	t.items = append(t.items, Item{Name: name, Parent: parent})

	i, _ := t.search(parent, name)
	if parent == NoHandle {
		t.roots = slices.Insert(t.roots, i, h)
	} else {
		t.items[parent].children = slices.Insert(t.items[parent].children, i, h)
	}
	return h
}

// ForEachItem visits every item depth-first, parents before children and
// siblings in name order.
func (t *Tree) ForEachItem(fn func(h Handle, it *Item)) {
	t.walk(t.roots, fn)
}

func (t *Tree) walk(hs []Handle, fn func(h Handle, it *Item)) {
	for _, h := range hs {
		fn(h, &t.items[h])
		t.walk(t.items[h].children, fn)
	}
}

// ForEachRoot visits the root items in name order.
func (t *Tree) ForEachRoot(fn func(h Handle, it *Item)) {
	for _, h := range t.roots {
		fn(h, &t.items[h])
	}
}

// ForEachChild visits the direct children of h in name order.
func (t *Tree) ForEachChild(h Handle, fn func(h Handle, it *Item)) {
	for _, c := range t.items[h].children {
		fn(c, &t.items[c])
	}
}

// HasChildren reports whether h has any children.
func (t *Tree) HasChildren(h Handle) bool {
	return len(t.items[h].children) > 0
}

// Depth returns the number of ancestors of h.
func (t *Tree) Depth(h Handle) int {
	n := 0
	for p := t.items[h].Parent; p != NoHandle; p = t.items[p].Parent {
		n++
	}
	return n
}

// Path reconstructs the full catalog path of h from its ancestors.
func (t *Tree) Path(h Handle) catalog.Path {
	names := []string{t.items[h].Name}
	for p := t.items[h].Parent; p != NoHandle; p = t.items[p].Parent {
		names = append(names, t.items[p].Name)
	}
	slices.Reverse(names)
	return catalog.NewPath(strings.Join(names, string(catalog.Separator)))
}

// Find returns the item for p.
func (t *Tree) Find(p catalog.Path) (Handle, bool) {
	if p.Empty() {
		return NoHandle, false
	}
	h, ok := NoHandle, true
	p.Components(func(name string, _ bool) {
		if !ok {
			return
		}
		h, ok = t.child(h, name)
	})
	return h, ok
}
