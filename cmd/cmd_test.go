package cmd

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/assetcat/internal/cdf"
	"github.com/agentic-research/assetcat/internal/service"
)

// run executes the root command with fresh flag values and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	libraryPath, docPath, configPath, logLevel = ".", "", "", "info"
	treeJSON, treeSelect = false, ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// tempLibrary returns an empty library directory and the flags pointing at it.
func tempLibrary(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	return dir, []string{"-l", dir, "--config", filepath.Join(dir, "none.hcl"), "--log-level", "error"}
}

func mustRun(t *testing.T, flags []string, args ...string) string {
	t.Helper()
	out, err := run(t, append(args, flags...)...)
	require.NoError(t, err)
	return out
}

func TestCreateAndList(t *testing.T) {
	dir, flags := tempLibrary(t)

	out := mustRun(t, flags, "create", "character/props")
	id, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, cdf.DefaultFilename))
	require.NoError(t, err)
	assert.Contains(t, string(data), id.String()+":character/props:character-props\n")

	lines := strings.Split(strings.TrimSpace(mustRun(t, flags, "ls")), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "  character  character"))
	assert.Equal(t, id.String()+"  character/props  character-props", lines[1])
}

func TestCreate_EmptyPath(t *testing.T) {
	_, flags := tempLibrary(t)
	_, err := run(t, append([]string{"create", "//"}, flags...)...)
	assert.Error(t, err)
}

func TestMove_Cascades(t *testing.T) {
	_, flags := tempLibrary(t)
	x := strings.TrimSpace(mustRun(t, flags, "create", "a/b"))
	mustRun(t, flags, "create", "a/b/c")
	mustRun(t, flags, "create", "a/bc")

	mustRun(t, flags, "mv", x, "x/y")

	ls := mustRun(t, flags, "ls")
	assert.Contains(t, ls, x+"  x/y  ")
	assert.Contains(t, ls, "  x/y/c  ")
	assert.Contains(t, ls, "  a/bc  ")
	assert.NotContains(t, ls, "  a/b/c  ")
}

func TestMove_UnknownID(t *testing.T) {
	_, flags := tempLibrary(t)
	mustRun(t, flags, "create", "a")
	_, err := run(t, append([]string{"mv", uuid.NewString(), "b"}, flags...)...)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRemove(t *testing.T) {
	_, flags := tempLibrary(t)
	id := strings.TrimSpace(mustRun(t, flags, "create", "gone"))
	mustRun(t, flags, "create", "kept")

	mustRun(t, flags, "rm", id)

	ls := mustRun(t, flags, "ls")
	assert.NotContains(t, ls, id)
	assert.Contains(t, ls, "  kept  ")

	_, err := run(t, append([]string{"rm", id}, flags...)...)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = run(t, append([]string{"rm", "not-a-uuid"}, flags...)...)
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	_, flags := tempLibrary(t)
	mustRun(t, flags, "create", "a")
	ab := strings.TrimSpace(mustRun(t, flags, "create", "a/b"))
	abc := strings.TrimSpace(mustRun(t, flags, "create", "a/b/c"))

	lines := strings.Split(strings.TrimSpace(mustRun(t, flags, "filter", ab)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, ab+"  a/b", lines[0], "active catalog first")
	assert.Equal(t, abc+"  a/b/c", lines[1])
}

func TestTree_Text(t *testing.T) {
	_, flags := tempLibrary(t)
	mustRun(t, flags, "create", "character/props")
	mustRun(t, flags, "create", "animals")

	out := mustRun(t, flags, "tree")
	assert.Equal(t, "animals\ncharacter\n  props (character-props)\n", out)
}

func TestTree_JSONSelect(t *testing.T) {
	_, flags := tempLibrary(t)
	mustRun(t, flags, "create", "character/props")

	out := mustRun(t, flags, "tree", "--select", "$[0].children[*].path")
	assert.JSONEq(t, `["character/props"]`, out)

	out = mustRun(t, flags, "tree", "--json")
	assert.Contains(t, out, "character-props")

	_, err := run(t, append([]string{"tree", "--select", "$["}, flags...)...)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	dir, flags := tempLibrary(t)
	mustRun(t, flags, "create", "character/props")
	dbPath := filepath.Join(dir, "out.db")

	mustRun(t, flags, "export", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	var parent string
	require.NoError(t, db.QueryRow("SELECT parent_path FROM catalogs WHERE path = ?", "character/props").Scan(&parent))
	assert.Equal(t, "character", parent)
}

func TestUnreadableFileBlocksMutation(t *testing.T) {
	dir, flags := tempLibrary(t)
	file := filepath.Join(dir, cdf.DefaultFilename)
	old := "VERSION 2\n" + uuid.NewString() + ":future:Future\n"
	require.NoError(t, os.WriteFile(file, []byte(old), 0o644))

	_, err := run(t, append([]string{"create", "a"}, flags...)...)
	var cerr *cdf.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, cdf.KindVersion, cerr.Kind)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, old, string(data), "file left untouched")

	out := mustRun(t, flags, "ls")
	assert.Empty(t, out, "read-only commands still run")
}

func TestConfiguredLibraryName(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	cfg := filepath.Join(dir, "assetcat.hcl")
	require.NoError(t, os.WriteFile(cfg, []byte("default_filename = \"cats.txt\"\nlibrary \"main\" {\n  path = \"assets\"\n}\n"), 0o644))
	flags := []string{"-l", "main", "--config", cfg, "--log-level", "error"}

	mustRun(t, flags, "create", "props")

	_, err := os.Stat(filepath.Join(lib, "cats.txt"))
	assert.NoError(t, err)
}

func TestSessionNamesConfiguredLibrary(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	cfg := filepath.Join(dir, "assetcat.hcl")
	require.NoError(t, os.WriteFile(cfg, []byte("library \"main\" {\n  path = \"assets\"\n}\n"), 0o644))

	rootCmd.SetErr(io.Discard)
	libraryPath, docPath, configPath, logLevel = "main", "", cfg, "error"
	s, err := openSession(rootCmd, true)
	require.NoError(t, err)
	assert.Equal(t, "main", s.library)
	assert.Equal(t, lib, s.root)

	libraryPath, docPath = "main", filepath.Join(dir, "outside", "shot.blend")
	s, err = openSession(rootCmd, true)
	require.NoError(t, err)
	assert.Empty(t, s.library, "document outside every library")
}

func TestDocPlacesNewFile(t *testing.T) {
	dir, flags := tempLibrary(t)
	scenes := filepath.Join(dir, "scenes")
	flags = append(flags, "--doc", filepath.Join(scenes, "shot.blend"))

	mustRun(t, flags, "create", "props")

	_, err := os.Stat(filepath.Join(scenes, cdf.DefaultFilename))
	assert.NoError(t, err, "no library configured, so the file goes next to the document")
}

func TestLogLevel_Invalid(t *testing.T) {
	_, flags := tempLibrary(t)
	_, err := run(t, append([]string{"ls"}, append(flags, "--log-level", "loud")...)...)
	assert.Error(t, err)
}
