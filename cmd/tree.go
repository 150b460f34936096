package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/agentic-research/assetcat/internal/tree"
)

var (
	treeJSON   bool
	treeSelect string
)

func init() {
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Print the tree as JSON")
	treeCmd.Flags().StringVar(&treeSelect, "select", "", "JSONPath expression applied to the JSON tree (implies --json)")
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the catalog tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		t := s.svc.Tree()
		out := cmd.OutOrStdout()
		if !treeJSON && treeSelect == "" {
			printTree(out, t)
			return nil
		}

		var data any = dumpTree(t)
		if treeSelect != "" {
			x, err := jp.ParseString(treeSelect)
			if err != nil {
				return fmt.Errorf("invalid jsonpath '%s': %w", treeSelect, err)
			}
			data = x.Get(data)
		}
		fmt.Fprintln(out, oj.JSON(data, &ojg.Options{Indent: 2, Sort: true}))
		return nil
	},
}

func printTree(w io.Writer, t *tree.Tree) {
	t.ForEachItem(func(h tree.Handle, it *tree.Item) {
		indent := strings.Repeat("  ", t.Depth(h))
		if it.Label != "" && it.Label != it.Name {
			fmt.Fprintf(w, "%s%s (%s)\n", indent, it.Name, it.Label)
			return
		}
		fmt.Fprintf(w, "%s%s\n", indent, it.Name)
	})
}

// dumpTree converts t into plain maps and slices for JSONPath evaluation.
func dumpTree(t *tree.Tree) []any {
	roots := []any{}
	t.ForEachRoot(func(h tree.Handle, _ *tree.Item) {
		roots = append(roots, dumpItem(t, h))
	})
	return roots
}

func dumpItem(t *tree.Tree, h tree.Handle) map[string]any {
	it := t.Item(h)
	m := map[string]any{
		"name":  it.Name,
		"path":  t.Path(h).String(),
		"depth": int64(t.Depth(h)),
	}
	if it.CatalogID != catalog.NilID {
		m["id"] = it.CatalogID.String()
		m["label"] = it.Label
	}
	var children []any
	t.ForEachChild(h, func(c tree.Handle, _ *tree.Item) {
		children = append(children, dumpItem(t, c))
	})
	if len(children) > 0 {
		m["children"] = children
	}
	return m
}
