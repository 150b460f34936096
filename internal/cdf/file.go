// Package cdf reads and writes catalog definition files.
//
// A definition file is line oriented UTF-8 text:
//
//	# comment lines
//
//	VERSION 1
//
//	<uuid>:<catalog/path>:<label>
//
// A File never owns catalogs. It keeps references into the caller's catalog set so
// that it knows which catalogs to write back.
package cdf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/assetcat/internal/catalog"
)

const (
	// DefaultFilename is looked up in a library directory on load and used when
	// picking a save destination.
	DefaultFilename = "blender_assets.cats.txt"

	// SupportedVersion is the only accepted VERSION value.
	SupportedVersion = 1

	// Header opens every written file.
	Header = "# This is an Asset Catalog Definition file for Blender.\n" +
		"#\n" +
		"# Empty lines and lines starting with `#` will be ignored.\n" +
		"# The first non-ignored line should be the version indicator.\n" +
		"# Other lines are of the format \"UUID:catalog/path/for/assets:simple catalog name\"\n"

	// MaxLineLength bounds a single line read from a definition file.
	MaxLineLength = 64 * 1024

	// versionMarker includes the trailing space.
	versionMarker = "VERSION "

	delim = ':'
)

// Admit decides whether a parsed catalog is kept. Returning true hands the
// catalog to the caller's set; the File then references it.
type Admit func(c *catalog.Catalog) bool

// Report summarizes one parse. Diagnostics holds the line level problems, which
// never abort a parse.
type Report struct {
	Kept        int
	Rejected    int
	Diagnostics []*Error
}

// File is a catalog definition file bound to a path on a filesystem.
type File struct {
	Path string

	fs       billy.Filesystem
	log      *slog.Logger
	version  int
	catalogs map[catalog.ID]*catalog.Catalog
}

// Option configures a File.
type Option func(*File)

// WithLogger sends diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.log = l
		}
	}
}

// WithVersion overrides the supported format version.
func WithVersion(v int) Option {
	return func(f *File) { f.version = v }
}

// New returns a File for path on fs that references no catalogs yet.
func New(fs billy.Filesystem, path string, opts ...Option) *File {
	f := &File{
		Path:     path,
		fs:       fs,
		log:      slog.New(slog.DiscardHandler),
		version:  SupportedVersion,
		catalogs: make(map[catalog.ID]*catalog.Catalog),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Contains reports whether the file references a catalog with id.
func (f *File) Contains(id catalog.ID) bool {
	_, ok := f.catalogs[id]
	return ok
}

// Add makes the file responsible for persisting c.
func (f *File) Add(c *catalog.Catalog) {
	f.catalogs[c.ID] = c
}

// Len returns the number of referenced catalogs, deleted ones included.
func (f *File) Len() int { return len(f.catalogs) }

// Parse reads the file from disk, see Read.
func (f *File) Parse(admit Admit) (Report, error) {
	r, err := f.fs.Open(f.Path)
	if err != nil {
		return Report{}, &Error{Kind: KindIO, Path: f.Path, Msg: "open", Err: err}
	}
	defer func() { _ = r.Close() }()
	return f.Read(r, admit)
}

// Read parses definition lines from r. Every parsed catalog is offered to admit;
// kept catalogs become referenced by f once all of r has been read, so a failed
// read leaves f unchanged. A missing or unsupported VERSION line aborts with a
// KindVersion error before any catalog line is looked at. Lines longer than
// MaxLineLength are skipped with a KindMalformedLine diagnostic.
func (f *File) Read(r io.Reader, admit Admit) (Report, error) {
	var rep Report
	var kept []*catalog.Catalog
	seen := make(map[catalog.ID]int)
	versionSeen := false
	lineNo := 0

	br := bufio.NewReaderSize(r, MaxLineLength)
	for {
		raw, tooLong, err := nextLine(br)
		if err != nil && err != io.EOF {
			return Report{}, &Error{Kind: KindIO, Path: f.Path, Line: lineNo + 1, Msg: "read", Err: err}
		}
		last := err == io.EOF
		if last && raw == "" && !tooLong {
			break
		}
		lineNo++

		c, isVersion, lerr := f.readLine(raw, tooLong, lineNo, versionSeen)
		switch {
		case lerr != nil && lerr.Kind == KindVersion:
			f.log.Warn("ignoring catalog definition file", "path", f.Path, "line", lineNo, "kind", lerr.Kind, "err", lerr.Msg)
			return Report{}, lerr
		case lerr != nil:
			rep.Diagnostics = append(rep.Diagnostics, lerr)
			f.log.Warn("skipping catalog line", "path", f.Path, "line", lineNo, "kind", lerr.Kind, "err", lerr.Msg)
		case isVersion:
			versionSeen = true
		case c == nil:
		default:
			if first, dup := seen[c.ID]; dup {
				derr := &Error{
					Kind: KindDuplicate,
					Path: f.Path,
					Line: lineNo,
					Msg:  fmt.Sprintf("catalog %s already defined on line %d, using first occurrence", c.ID, first),
				}
				rep.Diagnostics = append(rep.Diagnostics, derr)
				f.log.Warn("duplicate catalog", "path", f.Path, "line", lineNo, "id", c.ID, "first", first)
				break
			}
			seen[c.ID] = lineNo
			if !admit(c) {
				rep.Rejected++
				break
			}
			kept = append(kept, c)
			rep.Kept++
		}
		if last {
			break
		}
	}
	if !versionSeen {
		err := &Error{Kind: KindVersion, Path: f.Path, Msg: "no version declaration"}
		f.log.Warn("ignoring catalog definition file", "path", f.Path, "kind", err.Kind, "err", err.Msg)
		return Report{}, err
	}
	for _, c := range kept {
		f.Add(c)
	}
	return rep, nil
}

// readLine interprets one raw line. A nil catalog without error means the line
// carries no catalog: blank, comment, version declaration or skipped by
// convention.
func (f *File) readLine(raw string, tooLong bool, lineNo int, versionSeen bool) (*catalog.Catalog, bool, *Error) {
	if tooLong {
		kind := KindMalformedLine
		if !versionSeen {
			kind = KindVersion
		}
		return nil, false, &Error{Kind: kind, Path: f.Path, Line: lineNo, Msg: fmt.Sprintf("line longer than %d bytes", MaxLineLength)}
	}
	line := strings.TrimSpace(raw)
	if line == "" || line[0] == '#' {
		return nil, false, nil
	}
	if !versionSeen {
		if err := f.parseVersion(line, lineNo); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}
	c, err := f.parseLine(line, lineNo)
	return c, false, err
}

// nextLine returns the next line of br without its terminator. A line that does
// not fit in br's buffer is consumed up to its end and reported as tooLong with
// no content.
func nextLine(br *bufio.Reader) (string, bool, error) {
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			tooLong = true
			continue
		}
		if tooLong {
			return "", true, err
		}
		return strings.TrimRight(string(chunk), "\r\n"), false, err
	}
}

func (f *File) parseVersion(line string, lineNo int) *Error {
	rest, ok := strings.CutPrefix(line, versionMarker)
	if !ok {
		return &Error{Kind: KindVersion, Path: f.Path, Line: lineNo, Msg: "first line should be version declaration"}
	}
	v, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return &Error{Kind: KindVersion, Path: f.Path, Line: lineNo, Msg: "invalid version number", Err: err}
	}
	if v != f.version {
		return &Error{Kind: KindVersion, Path: f.Path, Line: lineNo, Msg: fmt.Sprintf("unsupported version %d, want %d", v, f.version)}
	}
	return nil
}

// parseLine returns (nil, nil) for lines that are skipped by convention rather
// than by error: an empty path field is reserved.
func (f *File) parseLine(line string, lineNo int) (*catalog.Catalog, *Error) {
	idText, rest, ok := strings.Cut(line, string(delim))
	if !ok {
		return nil, &Error{Kind: KindMalformedLine, Path: f.Path, Line: lineNo, Msg: "invalid catalog line"}
	}
	id, err := catalog.ParseID(strings.TrimSpace(idText))
	if err != nil {
		return nil, &Error{Kind: KindMalformedLine, Path: f.Path, Line: lineNo, Msg: "invalid UUID", Err: err}
	}

	if strings.HasPrefix(rest, string(delim)) {
		f.log.Debug("skipping catalog line without path", "path", f.Path, "line", lineNo)
		return nil, nil
	}

	pathText, label, hasLabel := strings.Cut(rest, string(delim))
	if hasLabel {
		label = strings.TrimSpace(label)
	}
	p := catalog.NewPath(pathText)
	if p.Empty() {
		return nil, &Error{Kind: KindMalformedLine, Path: f.Path, Line: lineNo, Msg: "empty catalog path"}
	}
	return &catalog.Catalog{ID: id, Path: p, Label: label}, nil
}

// Encode writes the file contents to w: header, version, then one line per
// non-deleted catalog ordered by path and id.
func (f *File) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s%d\n\n", Header, versionMarker, f.version)

	cats := make([]*catalog.Catalog, 0, len(f.catalogs))
	for c := range maps.Values(f.catalogs) {
		if !c.IsDeleted {
			cats = append(cats, c)
		}
	}
	slices.SortFunc(cats, catalog.Compare)
	for _, c := range cats {
		fmt.Fprintf(bw, "%s%c%s%c%s\n", c.ID, delim, c.Path, delim, c.Label)
	}
	return bw.Flush()
}

// Write saves the file to its own path, see WriteTo.
func (f *File) Write() error {
	return f.WriteTo(f.Path)
}

// WriteTo saves the file to dest without ever leaving a partial file under that
// name: the content goes to dest.writing first, an existing dest is rotated to
// dest~, then dest.writing is renamed into place.
func (f *File) WriteTo(dest string) error {
	if dest == "" {
		return &Error{Kind: KindIO, Msg: "no destination path"}
	}
	writing := dest + ".writing"
	backup := dest + "~"

	if err := f.ensureDir(filepath.Dir(dest)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return &Error{Kind: KindIO, Path: dest, Msg: "encode", Err: err}
	}
	if err := f.writeFile(writing, buf.Bytes()); err != nil {
		return err
	}

	if _, err := f.fs.Stat(dest); err == nil {
		if err := f.fs.Rename(dest, backup); err != nil {
			return &Error{Kind: KindIO, Path: dest, Msg: "rotate backup", Err: err}
		}
	} else if !os.IsNotExist(err) {
		return &Error{Kind: KindIO, Path: dest, Msg: "stat", Err: err}
	}

	if err := f.fs.Rename(writing, dest); err != nil {
		return &Error{Kind: KindIO, Path: dest, Msg: "rename into place", Err: err}
	}
	f.log.Debug("wrote catalog definition file", "path", dest, "catalogs", len(f.catalogs))
	return nil
}

func (f *File) writeFile(name string, data []byte) error {
	w, err := f.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &Error{Kind: KindIO, Path: name, Msg: "create", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		_ = f.fs.Remove(name) // best-effort cleanup
		return &Error{Kind: KindIO, Path: name, Msg: "write", Err: err}
	}
	if err := w.Close(); err != nil {
		_ = f.fs.Remove(name) // best-effort cleanup
		return &Error{Kind: KindIO, Path: name, Msg: "close", Err: err}
	}
	return nil
}

// ensureDir creates dir when missing. A non-directory already at dir is an error.
func (f *File) ensureDir(dir string) error {
	info, err := f.fs.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return &Error{Kind: KindIO, Path: dir, Msg: "exists but is not a directory"}
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return &Error{Kind: KindIO, Path: dir, Msg: "stat", Err: err}
	}
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return &Error{Kind: KindIO, Path: dir, Msg: "create directory", Err: err}
	}
	return nil
}
