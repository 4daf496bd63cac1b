// Package sheet loads and saves datasets as single-sheet xlsx workbooks.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"scan-fill/pkg/models"
)

// DefaultSheet is the sheet name written by Save.
const DefaultSheet = "Sheet1"

// ErrNoHeader is returned for a workbook whose first sheet has no header row.
var ErrNoHeader = errors.New("spreadsheet has no header row")

// Load reads the first sheet of the workbook at path.
func Load(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a workbook from r. The first row of the first sheet is the
// header; each following non-blank row becomes a record. The result is
// normalized.
func Read(r io.Reader) (*models.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrNoHeader
	}

	// Cells beyond the last header cell get "Unnamed: <i>" columns.
	header := rows[0]
	for _, cells := range rows[1:] {
		for len(header) < len(cells) {
			header = append(header, "")
		}
	}
	schema := headerSchema(header)
	ds := models.NewDataset(schema)
	for _, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		row := make(models.Row, len(schema))
		for i, col := range schema {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	log.Printf("[sheet] loaded %q (%d columns, %d rows)", sheets[0], len(schema), ds.Len())
	return ds.Normalize(), nil
}

// Save writes ds to path as a new workbook.
func Save(ds *models.Dataset, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	if err := Write(ds, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Write encodes ds as an xlsx workbook: a header row followed by one row per
// record, columns in schema order.
func Write(ds *models.Dataset, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, ds.Schema); err != nil {
		return err
	}
	for i, row := range ds.Rows {
		if err := setRow(f, i+2, row.Values(ds.Schema)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(DefaultSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// headerSchema turns the header cells into unique column names. Blank cells
// become "Unnamed: <index>" and repeated names get ".1", ".2", ... suffixes.
func headerSchema(cells []string) models.Schema {
	schema := make(models.Schema, 0, len(cells))
	used := make(map[string]bool, len(cells))
	suffix := make(map[string]int)
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			suffix[base]++
			name = fmt.Sprintf("%s.%d", base, suffix[base])
		}
		used[name] = true
		schema = append(schema, name)
	}
	return schema
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
