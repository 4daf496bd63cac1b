// Package extract turns recognized text into candidate rows.
//
// The strategy is deliberately naive: lines are split on '\n' and fields on
// ','. There is no quoting, escaping or delimiter detection, so a value that
// itself contains a comma cannot be represented.
package extract

import (
	"strings"

	"scan-fill/pkg/models"
)

// Result is the outcome of extracting one block of text.
type Result struct {
	Rows []models.Row
	// Lines is the number of non-blank lines seen.
	Lines int
	// Dropped counts non-blank lines whose field count did not match the schema.
	Dropped int
}

// Rows returns the candidate rows found in text for schema. Lines whose
// comma-split field count differs from len(schema) are dropped silently.
func Rows(text string, schema models.Schema) []models.Row {
	return Extract(text, schema).Rows
}

// Extract is Rows with line accounting, so callers can report how many lines
// were dropped.
func Extract(text string, schema models.Schema) Result {
	res := Result{Rows: []models.Row{}}
	if len(schema) == 0 {
		return res
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		res.Lines++

		fields := strings.Split(line, ",")
		if len(fields) != len(schema) {
			res.Dropped++
			continue
		}

		row := make(models.Row, len(schema))
		for i, col := range schema {
			row[col] = strings.TrimSpace(fields[i])
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}
