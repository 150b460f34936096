// Package export writes read-only snapshots of a catalog set for other tools.
package export

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/assetcat/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalogs (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	label TEXT NOT NULL,
	parent_path TEXT NOT NULL,
	depth INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_catalogs_parent ON catalogs(parent_path);
`

// SQLiteWriter inserts catalogs into a SQLite database in one transaction.
// Nothing is visible to readers until Close commits.
type SQLiteWriter struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	log   *slog.Logger
	count int
}

// NewSQLiteWriter opens dbPath, creates the schema and starts a transaction.
// A nil logger discards.
func NewSQLiteWriter(dbPath string, log *slog.Logger) (*SQLiteWriter, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &SQLiteWriter{db: db, log: log}
	if w.tx, err = db.Begin(); err != nil {
		_ = db.Close()
		return nil, err
	}
	w.stmt, err = w.tx.Prepare(`
		INSERT OR REPLACE INTO catalogs (id, path, label, parent_path, depth)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = w.tx.Rollback()
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return w, nil
}

// Add writes c. Deleted catalogs are skipped.
func (w *SQLiteWriter) Add(c *catalog.Catalog) error {
	if c.IsDeleted {
		return nil
	}
	_, err := w.stmt.Exec(c.ID.String(), c.Path.String(), c.Label, c.Path.Parent().String(), c.Path.Depth())
	if err != nil {
		return fmt.Errorf("insert %s: %w", c.ID, err)
	}
	w.count++
	return nil
}

// Reset removes every row written by earlier exports. Like Add, it takes effect
// when Close commits.
func (w *SQLiteWriter) Reset() error {
	res, err := w.tx.Exec("DELETE FROM catalogs")
	if err != nil {
		return fmt.Errorf("clear catalogs: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		w.log.Debug("cleared previous export", "rows", n)
	}
	return nil
}

// Close commits and closes the database.
func (w *SQLiteWriter) Close() error {
	_ = w.stmt.Close()
	if err := w.tx.Commit(); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("commit: %w", err)
	}
	w.log.Debug("exported catalogs", "rows", w.count)
	return w.db.Close()
}

// abort rolls back and closes the database.
func (w *SQLiteWriter) abort() {
	_ = w.stmt.Close()
	_ = w.tx.Rollback()
	_ = w.db.Close()
}

// Snapshot replaces the catalogs table in dbPath with cats. Readers see either
// the previous export or the new one.
func Snapshot(dbPath string, cats []*catalog.Catalog, log *slog.Logger) error {
	w, err := NewSQLiteWriter(dbPath, log)
	if err != nil {
		return err
	}
	if err := w.Reset(); err != nil {
		w.abort()
		return err
	}
	for _, c := range cats {
		if err := w.Add(c); err != nil {
			w.abort()
			return err
		}
	}
	return w.Close()
}
