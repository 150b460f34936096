package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agentic-research/assetcat/internal/library"
	"github.com/agentic-research/assetcat/internal/service"
)

var (
	libraryPath string
	docPath     string
	configPath  string
	logLevel    string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&libraryPath, "library", "l", ".", "Definition file, library directory, or configured library name")
	pf.StringVar(&docPath, "doc", "", "Host document used to place a new definition file (default <library>/untitled)")
	pf.StringVar(&configPath, "config", "", "HCL config file (default $HOME/.config/assetcat/assetcat.hcl)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:           "assetcat",
	Short:         "Manage asset catalog definition files",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is the loaded library one command works on. library is the name of
// the configured library holding doc, empty when there is none.
type session struct {
	log     *slog.Logger
	svc     *service.Service
	root    string
	doc     string
	library string
}

// openSession loads the library named by the persistent flags. With strict set,
// a definition file that could not be read is an error; mutating commands use
// it so they never replace a file they did not understand.
func openSession(cmd *cobra.Command, strict bool) (*session, error) {
	log, err := newLogger(cmd.ErrOrStderr(), logLevel)
	if err != nil {
		return nil, err
	}
	fs := osfs.New("/")

	cfg := library.Default()
	if name := configFile(); name != "" {
		if cfg, err = library.Load(fs, name); err != nil {
			return nil, err
		}
	}

	root, err := filepath.Abs(cfg.ResolvePath(libraryPath))
	if err != nil {
		return nil, fmt.Errorf("resolve library %s: %w", libraryPath, err)
	}
	doc := docPath
	if doc == "" {
		doc = defaultDoc(fs, root)
	}
	if doc, err = filepath.Abs(doc); err != nil {
		return nil, fmt.Errorf("resolve document %s: %w", docPath, err)
	}

	resolver := library.NewResolver(cfg)
	var libName string
	if lib, ok := resolver.LibraryFor(doc); ok {
		libName = lib.Name
		log.Debug("document is in a configured library", "doc", doc, "library", lib.Name, "root", lib.Path)
	}

	svc := service.New(fs,
		service.WithLogger(log),
		service.WithRootResolver(resolver),
		service.WithDefaultFilename(cfg.DefaultFilename),
	)
	if err := svc.LoadFromDisk(root); err != nil {
		if strict {
			return nil, err
		}
		log.Warn("definition file ignored", "err", err)
	}
	return &session{log: log, svc: svc, root: root, doc: doc, library: libName}, nil
}

func (s *session) save() error {
	return s.svc.SaveForHostDocument(s.doc)
}

func configFile() string {
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			return abs
		}
		return configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "assetcat", "assetcat.hcl")
}

// defaultDoc stands in for the host document when none is given.
func defaultDoc(fs billy.Filesystem, root string) string {
	if info, err := fs.Stat(root); err == nil && info.Mode().IsRegular() {
		return filepath.Join(filepath.Dir(root), "untitled")
	}
	return filepath.Join(root, "untitled")
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	ll := &slog.LevelVar{}
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info", "":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return nil, fmt.Errorf("unknown log level: %q", level)
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	})), nil
}
