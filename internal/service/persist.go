package service

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/agentic-research/assetcat/internal/cdf"
)

// admitPolicy selects which parsed catalogs a definition file read may add.
type admitPolicy int

const (
	// admitFresh keeps catalogs the service has never seen.
	admitFresh admitPolicy = iota
	// admitMerge folds in external edits before a write: it keeps catalogs that
	// are neither live nor deleted in this session.
	admitMerge
)

// admit returns the cdf.Admit for policy. A kept catalog is registered as live.
//
// Ids are unique across live and deleted catalogs, so both policies refuse a
// deleted id; they differ in how loudly they do it.
func (s *Service) admit(policy admitPolicy, path string) cdf.Admit {
	return func(c *catalog.Catalog) bool {
		if ord, known := s.ordinals[c.ID]; known {
			switch {
			case policy == admitFresh && s.live.Contains(ord):
				s.log.Warn("catalog defined in multiple files, ignoring this one", "path", path, "id", c.ID)
			case policy == admitFresh:
				s.log.Info("catalog was deleted in this session, not loading it", "path", path, "id", c.ID)
			default:
				s.log.Debug("catalog already known, not merging", "path", path, "id", c.ID)
			}
			return false
		}
		s.register(c)
		return true
	}
}

// LoadFromDisk loads catalogs from a definition file, or from the default-named
// file inside a directory. A missing path, a directory without that file, or a
// special file is a silent no-op. The tree is rebuilt afterwards in every case.
//
// A returned error describes why the file's catalogs were ignored; none of them
// are loaded, but the file stays bound so a later save writes back to it.
func (s *Service) LoadFromDisk(fileOrDir string) error {
	defer s.RebuildTree()

	info, err := s.fs.Stat(fileOrDir)
	if err != nil {
		s.log.Debug("nothing to load", "path", fileOrDir, "err", err)
		return nil
	}
	switch {
	case info.Mode().IsRegular():
		return s.loadFile(fileOrDir)
	case info.IsDir():
		candidate := filepath.Join(fileOrDir, s.filename)
		if !s.isRegularFile(candidate) {
			return nil
		}
		return s.loadFile(candidate)
	default:
		s.log.Debug("not a file or directory, nothing to load", "path", fileOrDir)
		return nil
	}
}

func (s *Service) loadFile(path string) error {
	if s.file != nil {
		return fmt.Errorf("load %s: %w (bound to %s)", path, ErrDefinitionFileActive, s.file.Path)
	}
	f := s.newFile(path)
	s.file = f
	mark := len(s.arena)
	rep, err := f.Parse(s.admit(admitFresh, path))
	if err != nil {
		s.rollback(mark)
		return fmt.Errorf("load %s: %w", path, err)
	}
	s.log.Info("loaded catalog definition file", "path", path, "catalogs", rep.Kept, "skipped", len(rep.Diagnostics)+rep.Rejected)
	return nil
}

func (s *Service) newFile(path string) *cdf.File {
	return cdf.New(s.fs, path, cdf.WithLogger(s.log), cdf.WithVersion(s.version))
}

func (s *Service) isRegularFile(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// MergeFromDiskBeforeWriting re-reads the bound definition file and adopts the
// catalogs that appeared on disk since it was loaded. Catalogs live or deleted
// in this session are never taken from disk. Without a bound file, or when the
// file does not exist, it does nothing.
func (s *Service) MergeFromDiskBeforeWriting() error {
	if s.file == nil || !s.isRegularFile(s.file.Path) {
		return nil
	}
	mark := len(s.arena)
	rep, err := s.file.Parse(s.admit(admitMerge, s.file.Path))
	if err != nil {
		s.rollback(mark)
		return fmt.Errorf("merge %s: %w", s.file.Path, err)
	}
	if rep.Kept > 0 {
		s.log.Info("merged catalogs from disk", "path", s.file.Path, "catalogs", rep.Kept)
		s.RebuildTree()
	}
	return nil
}

// SaveForHostDocument writes the catalogs when the host document at docPath is
// saved.
//
// Once a definition file is bound, it is always written to. Otherwise nothing is
// written while the service has never held a catalog. A new file goes next to
// the document if a default-named file already exists there, else under the
// root chosen by the RootResolver.
func (s *Service) SaveForHostDocument(docPath string) error {
	if s.file == nil {
		if s.IsEmpty() && len(s.Tombstones()) == 0 {
			return nil
		}
		dest, err := s.destinationFor(docPath)
		if err != nil {
			return err
		}
		s.file = s.newFile(dest)
		for _, c := range s.Catalogs() {
			s.file.Add(c)
		}
	}

	if err := s.MergeFromDiskBeforeWriting(); err != nil {
		var cerr *cdf.Error
		if !errors.As(err, &cerr) || cerr.Kind == cdf.KindIO {
			return fmt.Errorf("save: %w", err)
		}
		s.log.Warn("existing definition file not merged, overwriting", "path", s.file.Path, "err", err)
	}

	if err := s.file.Write(); err != nil {
		s.log.Error("writing catalog definition file failed", "path", s.file.Path, "err", err)
		return fmt.Errorf("save: %w", err)
	}
	s.log.Info("saved catalog definition file", "path", s.file.Path)
	return nil
}

func (s *Service) destinationFor(docPath string) (string, error) {
	if docPath == "" {
		return "", ErrNoHostDocument
	}
	beside := filepath.Join(filepath.Dir(docPath), s.filename)
	if _, err := s.fs.Stat(beside); err == nil {
		return beside, nil
	}
	return filepath.Join(s.resolver.SuitableRoot(docPath), s.filename), nil
}
