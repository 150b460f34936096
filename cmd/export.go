package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/assetcat/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [output.db]",
	Short: "Write the live catalogs to a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := args[0]
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		cats := s.svc.Catalogs()

		start := time.Now()
		if err := export.Snapshot(output, cats, s.log); err != nil {
			return fmt.Errorf("export %s: %w", output, err)
		}
		s.log.Info("exported catalogs", "db", output, "catalogs", len(cats), "took", time.Since(start))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
