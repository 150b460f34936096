package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/agentic-research/assetcat/internal/service"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List live catalogs sorted by path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		cats := s.svc.Catalogs()
		slices.SortFunc(cats, catalog.Compare)
		out := cmd.OutOrStdout()
		for _, c := range cats {
			fmt.Fprintf(out, "%s  %s  %s\n", c.ID, c.Path, c.Label)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a catalog and save",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := catalog.NewPath(args[0])
		if p.Empty() {
			return fmt.Errorf("create: empty catalog path %q", args[0])
		}
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		c := s.svc.CreateCatalog(p)
		s.svc.RebuildTree()
		if err := s.save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.ID)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a catalog and save",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := catalog.ParseID(args[0])
		if err != nil {
			return fmt.Errorf("rm: %w", err)
		}
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		if s.svc.FindByID(id) == nil {
			return fmt.Errorf("rm %s: %w", id, service.ErrNotFound)
		}
		s.svc.DeleteCatalog(id)
		return s.save()
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <id> <new-path>",
	Short: "Rename a catalog, moving everything below it along, and save",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := catalog.ParseID(args[0])
		if err != nil {
			return fmt.Errorf("mv: %w", err)
		}
		p := catalog.NewPath(args[1])
		if p.Empty() {
			return fmt.Errorf("mv: empty catalog path %q", args[1])
		}
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		if err := s.svc.RenameCatalog(id, p); err != nil {
			return err
		}
		return s.save()
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter <id>",
	Short: "Print the catalogs matched when filtering by a catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := catalog.ParseID(args[0])
		if err != nil {
			return fmt.Errorf("filter: %w", err)
		}
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, m := range s.svc.BuildFilter(id).IDs() {
			if c := s.svc.FindByID(m); c != nil {
				fmt.Fprintf(out, "%s  %s\n", m, c.Path)
			} else {
				fmt.Fprintln(out, m)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd, createCmd, rmCmd, mvCmd, filterCmd)
}
