package models

import (
	"strings"
)

// NA is the sentinel stored in place of a missing cell value.
const NA = "NA"

// Schema is the ordered list of column names of a dataset. The first column
// is the identifier column.
type Schema []string

// ID returns the identifier column name, or "" for an empty schema.
func (s Schema) ID() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Index returns the ordinal position of column, or -1.
func (s Schema) Index(column string) int {
	for i, c := range s {
		if c == column {
			return i
		}
	}
	return -1
}

// Row is a single record keyed by column name.
type Row map[string]string

// Values returns the row's cells in schema order.
func (r Row) Values(schema Schema) []string {
	out := make([]string, len(schema))
	for i, col := range schema {
		out[i] = r[col]
	}
	return out
}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an in-memory table of records sharing one Schema.
type Dataset struct {
	Schema Schema `json:"schema"`
	Rows   []Row  `json:"rows"`
}

// NewDataset returns an empty dataset for schema.
func NewDataset(schema Schema) *Dataset {
	return &Dataset{Schema: append(Schema(nil), schema...), Rows: []Row{}}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Schema: append(Schema(nil), d.Schema...),
		Rows:   make([]Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Normalize returns a copy in which every row carries exactly the schema's
// columns. Absent and empty cells become NA; columns outside the schema are
// dropped.
func (d *Dataset) Normalize() *Dataset {
	out := &Dataset{
		Schema: append(Schema(nil), d.Schema...),
		Rows:   make([]Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		out.Rows[i] = NormalizeRow(r, d.Schema)
	}
	return out
}

// NormalizeRow aligns a single row to schema.
func NormalizeRow(r Row, schema Schema) Row {
	out := make(Row, len(schema))
	for _, col := range schema {
		v, ok := r[col]
		if !ok || v == "" {
			v = NA
		}
		out[col] = v
	}
	return out
}

// Equal reports whether both datasets have the same schema and the same rows
// in the same order.
func (d *Dataset) Equal(other *Dataset) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Schema) != len(other.Schema) || len(d.Rows) != len(other.Rows) {
		return false
	}
	for i := range d.Schema {
		if d.Schema[i] != other.Schema[i] {
			return false
		}
	}
	for i := range d.Rows {
		if len(d.Rows[i]) != len(other.Rows[i]) {
			return false
		}
		for k, v := range d.Rows[i] {
			if ov, ok := other.Rows[i][k]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}

// Filter returns the rows whose values match every criterion, compared
// case-insensitively. Criteria with an empty value or an unknown column are
// ignored.
func (d *Dataset) Filter(criteria map[string]string) []Row {
	active := make(map[string]string, len(criteria))
	for col, want := range criteria {
		if want == "" || d.Schema.Index(col) < 0 {
			continue
		}
		active[col] = strings.ToLower(want)
	}

	out := []Row{}
	for _, r := range d.Rows {
		matched := true
		for col, want := range active {
			if strings.ToLower(r[col]) != want {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, r.Clone())
		}
	}
	return out
}
