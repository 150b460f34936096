package cdf

import "fmt"

// Kind classifies a definition file problem by how far it reaches.
type Kind int

const (
	// KindIO is a filesystem failure. It aborts the operation.
	KindIO Kind = iota + 1
	// KindVersion is a missing or unsupported VERSION line. The whole file is ignored.
	KindVersion
	// KindMalformedLine is a catalog line that cannot be parsed. Only that line is skipped.
	KindMalformedLine
	// KindDuplicate is a catalog id seen earlier in the same file. The first occurrence wins.
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindVersion:
		return "version"
	case KindMalformedLine:
		return "malformed-line"
	case KindDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a definition file problem. Line is 1-based, 0 when not tied to a line.
type Error struct {
	Kind Kind
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }
