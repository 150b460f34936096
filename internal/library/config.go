// Package library holds the asset library configuration: where libraries live
// on disk and which definition filename they use.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/agentic-research/assetcat/internal/cdf"
)

// Library is a named directory tree of assets.
type Library struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

// Config is the decoded configuration file, for example:
//
//	default_filename = "blender_assets.cats.txt"
//
//	library "props" {
//	  path = "/srv/assets/props"
//	}
type Config struct {
	DefaultFilename string    `hcl:"default_filename,optional"`
	Libraries       []Library `hcl:"library,block"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{DefaultFilename: cdf.DefaultFilename}
}

// Load decodes the HCL file name on fs. A missing file yields Default.
// Relative library paths are taken relative to the file's directory.
func Load(fs billy.Filesystem, name string) (*Config, error) {
	src, err := util.ReadFile(fs, name)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", name, err)
	}
	return Parse(name, src)
}

// Parse decodes src. name is used for diagnostics and to locate relative
// library paths.
func Parse(name string, src []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(syntaxName(name), src, nil, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", name, err)
	}
	if cfg.DefaultFilename == "" {
		cfg.DefaultFilename = cdf.DefaultFilename
	}

	base := filepath.Dir(name)
	seen := make(map[string]bool, len(cfg.Libraries))
	for i := range cfg.Libraries {
		lib := &cfg.Libraries[i]
		if seen[lib.Name] {
			return nil, fmt.Errorf("config %s: library %q defined twice", name, lib.Name)
		}
		seen[lib.Name] = true
		if lib.Path == "" {
			return nil, fmt.Errorf("config %s: library %q has an empty path", name, lib.Name)
		}
		if !filepath.IsAbs(lib.Path) {
			lib.Path = filepath.Join(base, lib.Path)
		}
		lib.Path = filepath.Clean(lib.Path)
	}
	return &cfg, nil
}

// hclsimple picks the syntax from the extension; anything else is native HCL.
func syntaxName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hcl", ".json":
		return name
	}
	return name + ".hcl"
}

// Lookup returns the library called name.
func (c *Config) Lookup(name string) (Library, bool) {
	for _, lib := range c.Libraries {
		if lib.Name == name {
			return lib, true
		}
	}
	return Library{}, false
}

// ResolvePath maps a library name to its path. Anything that is not a
// configured library name is returned unchanged.
func (c *Config) ResolvePath(nameOrPath string) string {
	if lib, ok := c.Lookup(nameOrPath); ok {
		return lib.Path
	}
	return nameOrPath
}
