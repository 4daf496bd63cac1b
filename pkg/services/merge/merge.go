// Package merge reconciles candidate rows into a dataset by the identifier
// column (the schema's first column).
package merge

import (
	"fmt"
	"strings"

	"scan-fill/pkg/models"
)

// Policy decides what happens to a candidate whose identifier matches no
// existing row.
type Policy string

const (
	// Append adds unmatched candidates as new rows.
	Append Policy = "append"
	// Ignore drops unmatched candidates.
	Ignore Policy = "ignore"
)

// ParsePolicy accepts "append" or "ignore" in any case. An empty string yields
// Append.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Append:
		return Append, nil
	case Ignore:
		return Ignore, nil
	}
	return "", fmt.Errorf("unknown on_unmatched policy %q (want append or ignore)", s)
}

// Stats counts what happened to each candidate.
type Stats struct {
	Policy   Policy `json:"on_unmatched"`
	Updated  int    `json:"updated"`
	Appended int    `json:"appended"`
	Ignored  int    `json:"ignored"`
}

// Merge applies candidates to ds in order and returns a new normalized
// dataset. Every existing row whose identifier equals a candidate's identifier
// (exact, case-sensitive) is replaced by that candidate. Unmatched candidates
// are appended or ignored according to policy. Identifiers are compared after
// normalization. ds is not modified.
func Merge(ds *models.Dataset, candidates []models.Row, policy Policy) (*models.Dataset, Stats) {
	if policy == "" {
		policy = Append
	}
	out := ds.Normalize()
	stats := Stats{Policy: policy}
	idCol := out.Schema.ID()

	for _, cand := range candidates {
		// Match on the stored form so an empty identifier compares as NA.
		cand = models.NormalizeRow(cand, out.Schema)
		id := cand[idCol]
		matched := false
		for i, row := range out.Rows {
			if row[idCol] == id {
				out.Rows[i] = cand.Clone()
				matched = true
			}
		}

		switch {
		case matched:
			stats.Updated++
		case policy == Append:
			out.Rows = append(out.Rows, cand.Clone())
			stats.Appended++
		default:
			stats.Ignored++
		}
	}

	return out, stats
}
