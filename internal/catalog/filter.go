package catalog

import "github.com/RoaringBitmap/roaring"

// Indexer maps catalog ids to the stable ordinals stored in filter bitmaps.
// Ordinals are never reused, so a bitmap stays valid after later mutations.
type Indexer interface {
	Ordinal(id ID) (uint32, bool)
	IDAt(ord uint32) ID
}

// Filter matches a fixed set of catalogs: an active catalog and everything below it.
// It is a snapshot and does not follow later changes to the catalog set.
type Filter struct {
	active   ID
	matching *roaring.Bitmap
	index    Indexer
}

// NewFilter builds a filter for active over the ordinals in matching. The bitmap
// is copied.
func NewFilter(active ID, matching *roaring.Bitmap, index Indexer) *Filter {
	return &Filter{
		active:   active,
		matching: matching.Clone(),
		index:    index,
	}
}

// Contains reports whether id is matched. The active id always matches, even when
// it names no known catalog.
func (f *Filter) Contains(id ID) bool {
	if id == f.active {
		return true
	}
	ord, ok := f.index.Ordinal(id)
	return ok && f.matching.Contains(ord)
}

// IDs returns the matched ids, the active id first.
func (f *Filter) IDs() []ID {
	ids := []ID{f.active}
	it := f.matching.Iterator()
	for it.HasNext() {
		id := f.index.IDAt(it.Next())
		if id != f.active {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of matched ids.
func (f *Filter) Len() int {
	n := int(f.matching.GetCardinality())
	if ord, ok := f.index.Ordinal(f.active); !ok || !f.matching.Contains(ord) {
		n++
	}
	return n
}
