package catalog

import "strings"

// Separator delimits path components.
const Separator = '/'

// Path is a canonical catalog path such as "character/props/hats".
//
// A clean Path never starts or ends with a separator, has no empty components and
// no surrounding whitespace per component. Use NewPath to build one from user input.
type Path struct {
	s string
}

// NewPath cleans raw into a canonical Path. Both '/' and '\' are accepted as
// separators; ':' inside a component becomes '-' because the definition file
// format uses it as a field delimiter.
func NewPath(raw string) Path {
	var b strings.Builder
	for _, comp := range splitComponents(raw) {
		comp = strings.TrimSpace(comp)
		if comp == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(Separator)
		}
		b.WriteString(strings.ReplaceAll(comp, ":", "-"))
	}
	return Path{s: b.String()}
}

func splitComponents(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// String returns the path text.
func (p Path) String() string { return p.s }

// Empty reports whether p is the root path.
func (p Path) Empty() bool { return p.s == "" }

// Len returns the length of the path text in bytes.
func (p Path) Len() int { return len(p.s) }

// Depth returns the number of components; the root path has depth 0.
func (p Path) Depth() int {
	if p.s == "" {
		return 0
	}
	return strings.Count(p.s, string(Separator)) + 1
}

// Name returns the last component, or "" for the root path.
func (p Path) Name() string {
	if i := strings.LastIndexByte(p.s, Separator); i >= 0 {
		return p.s[i+1:]
	}
	return p.s
}

// Parent drops the last component. The parent of a single-component path, and of
// the root path, is the root path.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(p.s, Separator)
	if i < 0 {
		return Path{}
	}
	return Path{s: p.s[:i]}
}

// Join appends a child component (or sub-path) and cleans the result.
func (p Path) Join(child string) Path {
	if p.s == "" {
		return NewPath(child)
	}
	return NewPath(p.s + string(Separator) + child)
}

// IsContainedIn reports whether p equals other or lies below it. Comparison is
// per component: "a/bc" is not contained in "a/b". Every path is contained in
// the root path.
func (p Path) IsContainedIn(other Path) bool {
	if other.s == "" || p.s == other.s {
		return true
	}
	if len(p.s) <= len(other.s) {
		return false
	}
	return strings.HasPrefix(p.s, other.s) && p.s[len(other.s)] == Separator
}

// Rebase substitutes the prefix from with to when p is from or a descendant of it.
// The boolean is false when p does not lie under from.
func (p Path) Rebase(from, to Path) (Path, bool) {
	if from.s == "" {
		// The root path only rebases onto itself; anything else would graft every
		// catalog under to.
		return Path{}, false
	}
	if !p.IsContainedIn(from) {
		return Path{}, false
	}
	if p.s == from.s {
		return to, true
	}
	return to.Join(p.s[len(from.s)+1:]), true
}

// Components calls fn for each component in order. isLast is true for the final one.
func (p Path) Components(fn func(name string, isLast bool)) {
	if p.s == "" {
		return
	}
	rest := p.s
	for {
		i := strings.IndexByte(rest, Separator)
		if i < 0 {
			fn(rest, true)
			return
		}
		fn(rest[:i], false)
		rest = rest[i+1:]
	}
}

// Compare orders paths by their text.
func (p Path) Compare(other Path) int {
	return strings.Compare(p.s, other.s)
}
