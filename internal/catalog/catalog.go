// Package catalog holds the value types of the asset catalog store: ids, paths,
// catalogs and filters. Nothing here performs I/O.
package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ID identifies a catalog for its whole life. The zero value is NilID and is never
// assigned to a real catalog.
type ID = uuid.UUID

// NilID marks tree items that have no catalog of their own.
var NilID = uuid.Nil

// ParseID parses the textual form used in definition files.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// MaxLabelLength bounds the length of a derived label, in runes.
const MaxLabelLength = 64

// labelTail is how much of a long path survives label shortening.
const labelTail = 60

// Catalog is a uniquely identified node in the classification hierarchy.
type Catalog struct {
	ID        ID
	Path      Path
	Label     string
	IsDeleted bool
}

// New returns a catalog with a fresh random id and a label derived from its path.
func New(p Path) *Catalog {
	return &Catalog{
		ID:    uuid.New(),
		Path:  p,
		Label: LabelForPath(p),
	}
}

// LabelForPath flattens p into a single human-readable name. Separators become
// '-'. Long names keep their tail, since the last components are the most specific.
func LabelForPath(p Path) string {
	name := strings.ReplaceAll(p.String(), string(Separator), "-")
	if utf8.RuneCountInString(name) < MaxLabelLength-1 {
		return name
	}
	runes := []rune(name)
	return "..." + string(runes[len(runes)-labelTail:])
}

// Compare orders catalogs by path, then id. Definition files are written in this order.
func Compare(a, b *Catalog) int {
	if c := a.Path.Compare(b.Path); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}
