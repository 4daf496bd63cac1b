package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scan-fill/pkg/config"
	"scan-fill/pkg/models"
	"scan-fill/pkg/services/document"
	"scan-fill/pkg/services/extract"
	"scan-fill/pkg/services/merge"
	"scan-fill/pkg/services/sheet"
)

func extractCmd() *cobra.Command {
	var sheetPath, scanPath string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the rows recognized in a scan without merging them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ds, err := sheet.Load(sheetPath)
			if err != nil {
				return err
			}
			res, ok, err := scanRows(cmd.Context(), cfg, scanPath, ds.Schema)
			if err != nil || !ok {
				return err
			}

			out := cmd.OutOrStdout()
			printRows(out, ds.Schema, res.Rows)
			fmt.Fprintf(out, "# %d row(s), %d line(s) dropped\n", len(res.Rows), res.Dropped)
			return nil
		},
	}

	cmd.Flags().StringVar(&sheetPath, "sheet", "", "Spreadsheet (.xlsx) whose columns define the rows")
	cmd.Flags().StringVar(&scanPath, "scan", "", "Scanned image or PDF")
	cmd.MarkFlagRequired("sheet")
	cmd.MarkFlagRequired("scan")
	return cmd
}

func mergeCmd() *cobra.Command {
	var sheetPath, scanPath, outPath, onUnmatched string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Scan a document and merge its rows into a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			policy := cfg.OnUnmatched
			if onUnmatched != "" {
				if policy, err = merge.ParsePolicy(onUnmatched); err != nil {
					return err
				}
			}

			ds, err := sheet.Load(sheetPath)
			if err != nil {
				return err
			}
			res, ok, err := scanRows(cmd.Context(), cfg, scanPath, ds.Schema)
			if err != nil || !ok {
				return err
			}

			updated, stats := merge.Merge(ds, res.Rows, policy)
			if outPath == "" {
				outPath = filepath.Join(filepath.Dir(sheetPath), "updated_data.xlsx")
			}
			if err := sheet.Save(updated, outPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d updated, %d appended, %d ignored, %d line(s) dropped\n",
				outPath, stats.Updated, stats.Appended, stats.Ignored, res.Dropped)
			return nil
		},
	}

	cmd.Flags().StringVar(&sheetPath, "sheet", "", "Spreadsheet (.xlsx) to update")
	cmd.Flags().StringVar(&scanPath, "scan", "", "Scanned image or PDF")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: updated_data.xlsx next to the sheet)")
	cmd.Flags().StringVar(&onUnmatched, "on-unmatched", "", "append or ignore rows whose identifier is not in the sheet (default from ON_UNMATCHED)")
	cmd.MarkFlagRequired("sheet")
	cmd.MarkFlagRequired("scan")
	return cmd
}

func filterCmd() *cobra.Command {
	var sheetPath string
	var where []string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print spreadsheet rows matching column values (case-insensitive)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseWhere(where)
			if err != nil {
				return err
			}
			ds, err := sheet.Load(sheetPath)
			if err != nil {
				return err
			}
			printRows(cmd.OutOrStdout(), ds.Schema, ds.Filter(criteria))
			return nil
		},
	}

	cmd.Flags().StringVar(&sheetPath, "sheet", "", "Spreadsheet (.xlsx) to search")
	cmd.Flags().StringArrayVar(&where, "where", nil, "Column=value condition, repeatable")
	cmd.MarkFlagRequired("sheet")
	return cmd
}

// scanRows recognizes the file at path and extracts rows for schema. ok is
// false when the engine could not run; a warning has then been logged and the
// caller should leave the spreadsheet alone.
func scanRows(ctx context.Context, cfg *config.Config, path string, schema models.Schema) (extract.Result, bool, error) {
	scanner, err := newScanner(cfg)
	if err != nil {
		return extract.Result{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Result{}, false, fmt.Errorf("failed to read scan: %w", err)
	}

	scan, err := scanner.Scan(ctx, document.Upload{Name: filepath.Base(path), Data: data})
	if err != nil {
		if document.Unavailable(err) {
			log.Printf("[scan] warning: text recognition unavailable, nothing merged: %v", err)
			return extract.Result{}, false, nil
		}
		return extract.Result{}, false, err
	}
	return extract.Extract(scan.Text, schema), true, nil
}

func parseWhere(conds []string) (map[string]string, error) {
	criteria := make(map[string]string, len(conds))
	for _, c := range conds {
		col, val, ok := strings.Cut(c, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("invalid --where %q (want Column=value)", c)
		}
		criteria[strings.TrimSpace(col)] = val
	}
	return criteria, nil
}

func printRows(w io.Writer, schema models.Schema, rows []models.Row) {
	fmt.Fprintln(w, strings.Join(schema, ","))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r.Values(schema), ","))
	}
}
