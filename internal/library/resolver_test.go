package library

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/agentic-research/assetcat/internal/cdf"
	"github.com/agentic-research/assetcat/internal/service"
)

func TestResolver_SuitableRoot(t *testing.T) {
	cfg := &Config{Libraries: []Library{
		{Name: "assets", Path: "/srv/assets"},
		{Name: "props", Path: "/srv/assets/props"},
		{Name: "other", Path: "/srv/other"},
	}}
	r := NewResolver(cfg)

	assert.Equal(t, "/srv/assets/props", r.SuitableRoot("/srv/assets/props/hats/hat.blend"))
	assert.Equal(t, "/srv/assets", r.SuitableRoot("/srv/assets/scenes/shot.blend"))
	assert.Equal(t, "/home/u/work", r.SuitableRoot("/home/u/work/doc.blend"), "outside every library")
	assert.Equal(t, "/srv", r.SuitableRoot("/srv/assetsX.blend"), "sibling name is not inside")

	lib, ok := r.LibraryFor("/srv/other/x.blend")
	require.True(t, ok)
	assert.Equal(t, "other", lib.Name)
	_, ok = r.LibraryFor("/tmp/x.blend")
	assert.False(t, ok)
}

func TestResolver_PlacesServiceSaves(t *testing.T) {
	fs := memfs.New()
	cfg := &Config{DefaultFilename: cdf.DefaultFilename, Libraries: []Library{{Name: "lib", Path: "/lib"}}}

	var _ service.RootResolver = NewResolver(cfg)
	s := service.New(fs, service.WithRootResolver(NewResolver(cfg)))
	s.CreateCatalog(catalog.NewPath("props"))
	require.NoError(t, s.SaveForHostDocument("/lib/deep/scenes/shot.blend"))
	assert.Equal(t, "/lib/"+cdf.DefaultFilename, s.DefinitionFile().Path)
}
