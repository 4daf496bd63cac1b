package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scan-fill/pkg/models"
)

var schema = models.Schema{"ID", "Name", "Amount"}

func TestRowsAlignedToSchema(t *testing.T) {
	got := Rows("1,Bob,20\n2,Carol,30", schema)

	assert.Equal(t, []models.Row{
		{"ID": "1", "Name": "Bob", "Amount": "20"},
		{"ID": "2", "Name": "Carol", "Amount": "30"},
	}, got)
}

func TestRowsDropsWrongFieldCount(t *testing.T) {
	assert.Empty(t, Rows("1,Bob", schema))
	assert.Empty(t, Rows("1,Bob,20,extra", schema))
}

func TestRowsEmptyInput(t *testing.T) {
	assert.Empty(t, Rows("", schema))
	assert.Empty(t, Rows("", models.Schema{"ID"}))
	assert.Empty(t, Rows("1,2,3", models.Schema{}))
}

func TestRowsBlankLinesOnly(t *testing.T) {
	for _, text := range []string{"\n", "   \n\t\n", " \r\n \n"} {
		assert.Empty(t, Rows(text, schema), "text %q", text)
	}
}

func TestRowsTrimsFields(t *testing.T) {
	got := Rows("  7 ,  Dave  ,\t15\r\n", schema)

	assert.Equal(t, []models.Row{{"ID": "7", "Name": "Dave", "Amount": "15"}}, got)
}

func TestMalformedLineOnlyDropsItself(t *testing.T) {
	text := "1,Bob,20\nnot a row\n2,Carol\n\n3,Erin,40"

	res := Extract(text, schema)

	assert.Len(t, res.Rows, 2)
	assert.Equal(t, "1", res.Rows[0]["ID"])
	assert.Equal(t, "3", res.Rows[1]["ID"])
	assert.Equal(t, 4, res.Lines)
	assert.Equal(t, 2, res.Dropped)
}

func TestEveryRowHasEveryColumn(t *testing.T) {
	schemas := []models.Schema{
		{"A"},
		{"A", "B"},
		{"A", "B", "C", "D", "E"},
	}
	text := "x\nx,y\nx,y,z\nx,,z,,\n,\n"

	for _, s := range schemas {
		for _, row := range Rows(text, s) {
			assert.Len(t, row, len(s))
			for _, col := range s {
				_, ok := row[col]
				assert.True(t, ok, "column %s missing", col)
			}
		}
	}
}

func TestEmptyFieldsKeptAsEmpty(t *testing.T) {
	got := Rows("4,,", schema)

	assert.Equal(t, []models.Row{{"ID": "4", "Name": "", "Amount": ""}}, got)
}
