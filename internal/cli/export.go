package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/export"
	"gastos/internal/ledger"
)

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as CSV or JSON",
	}

	var csvOut, jsonOut string
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Export every record as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.exportTo(cmd, csvOut, func(w io.Writer, snap core.Snapshot) error {
				return export.WriteCSV(w, snap)
			})
		},
	}
	csvCmd.Flags().StringVarP(&csvOut, "output", "o", "", "write to file instead of stdout (e.g. "+export.CSVFilename+")")

	jsonCmd := &cobra.Command{
		Use:   "json",
		Short: "Export the full ledger as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.exportTo(cmd, jsonOut, func(w io.Writer, snap core.Snapshot) error {
				return export.WriteJSON(w, snap, a.now())
			})
		},
	}
	jsonCmd.Flags().StringVarP(&jsonOut, "output", "o", "", "write to file instead of stdout (e.g. "+export.JSONFilename+")")

	cmd.AddCommand(csvCmd, jsonCmd)
	return cmd
}

func (a *app) exportTo(cmd *cobra.Command, path string, write func(io.Writer, core.Snapshot) error) error {
	return a.withLedger(cmd, func(_ context.Context, s *ledger.Store) error {
		snap := s.Snapshot()
		if path == "" {
			return write(cmd.OutOrStdout(), snap)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := write(f, snap); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d expenses and %d income entries to %s\n",
			len(snap.Expenses), len(snap.Receivables), path)
		return nil
	})
}
