package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentic-research/assetcat/internal/catalog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve catalog operations as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		s.log.Info("serving catalogs over stdio", "root", s.root, "library", s.library)
		return server.ServeStdio(newCatalogServer(s).mcpServer())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// catalogServer exposes one session to MCP clients. Tool calls may arrive
// concurrently; mu serializes every access to the service.
type catalogServer struct {
	mu sync.Mutex
	s  *session
}

func newCatalogServer(s *session) *catalogServer {
	return &catalogServer{s: s}
}

func (cs *catalogServer) mcpServer() *server.MCPServer {
	srv := server.NewMCPServer("assetcat", "0.1.0", server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("list_catalogs",
		mcp.WithDescription("List live catalogs as 'id path label' lines, sorted by path"),
	), cs.listCatalogs)

	srv.AddTool(mcp.NewTool("find_catalog",
		mcp.WithDescription("Look up the catalog at a path"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Catalog path, e.g. character/props")),
	), cs.findCatalog)

	srv.AddTool(mcp.NewTool("create_catalog",
		mcp.WithDescription("Create a catalog; missing parent catalogs are created too"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Catalog path")),
	), cs.createCatalog)

	srv.AddTool(mcp.NewTool("delete_catalog",
		mcp.WithDescription("Delete a catalog"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Catalog UUID")),
	), cs.deleteCatalog)

	srv.AddTool(mcp.NewTool("rename_catalog",
		mcp.WithDescription("Move a catalog and everything below its path to a new path"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Catalog UUID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("New catalog path")),
	), cs.renameCatalog)

	srv.AddTool(mcp.NewTool("filter_catalog",
		mcp.WithDescription("List the catalog ids matched when filtering by a catalog"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Catalog UUID")),
	), cs.filterCatalog)

	srv.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Write the catalog definition file"),
	), cs.save)

	return srv
}

func (cs *catalogServer) listCatalogs(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cats := cs.s.svc.Catalogs()
	slices.SortFunc(cats, catalog.Compare)
	var b strings.Builder
	for _, c := range cats {
		fmt.Fprintf(&b, "%s %s %s\n", c.ID, c.Path, c.Label)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (cs *catalogServer) findCatalog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes := requirePath(req, "path")
	if errRes != nil {
		return errRes, nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.s.svc.FindByPath(p)
	if c == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no catalog at %s", p)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s %s", c.ID, c.Path, c.Label)), nil
}

func (cs *catalogServer) createCatalog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, errRes := requirePath(req, "path")
	if errRes != nil {
		return errRes, nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c := cs.s.svc.CreateCatalog(p)
	cs.s.svc.RebuildTree()
	return mcp.NewToolResultText(c.ID.String()), nil
}

func (cs *catalogServer) deleteCatalog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireID(req)
	if errRes != nil {
		return errRes, nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.s.svc.FindByID(id) == nil {
		return mcp.NewToolResultError(fmt.Sprintf("catalog %s not found", id)), nil
	}
	cs.s.svc.DeleteCatalog(id)
	return mcp.NewToolResultText("deleted " + id.String()), nil
}

func (cs *catalogServer) renameCatalog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireID(req)
	if errRes != nil {
		return errRes, nil
	}
	p, errRes := requirePath(req, "path")
	if errRes != nil {
		return errRes, nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.s.svc.RenameCatalog(id, p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed %s to %s", id, p)), nil
}

func (cs *catalogServer) filterCatalog(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireID(req)
	if errRes != nil {
		return errRes, nil
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var b strings.Builder
	for _, m := range cs.s.svc.BuildFilter(id).IDs() {
		b.WriteString(m.String())
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (cs *catalogServer) save(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := cs.s.save(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dest := "nothing to save"
	if f := cs.s.svc.DefinitionFile(); f != nil {
		dest = "saved " + f.Path
	}
	return mcp.NewToolResultText(dest), nil
}

func requireID(req mcp.CallToolRequest) (catalog.ID, *mcp.CallToolResult) {
	raw, err := req.RequireString("id")
	if err != nil {
		return catalog.NilID, mcp.NewToolResultError(err.Error())
	}
	id, err := catalog.ParseID(raw)
	if err != nil {
		return catalog.NilID, mcp.NewToolResultError(fmt.Sprintf("invalid id %q: %v", raw, err))
	}
	return id, nil
}

func requirePath(req mcp.CallToolRequest, arg string) (catalog.Path, *mcp.CallToolResult) {
	raw, err := req.RequireString(arg)
	if err != nil {
		return catalog.Path{}, mcp.NewToolResultError(err.Error())
	}
	p := catalog.NewPath(raw)
	if p.Empty() {
		return catalog.Path{}, mcp.NewToolResultError(fmt.Sprintf("empty catalog path %q", raw))
	}
	return p, nil
}
