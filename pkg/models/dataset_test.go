package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFillsMissingAndDropsExtra(t *testing.T) {
	ds := &Dataset{
		Schema: Schema{"ID", "Name", "Amount"},
		Rows: []Row{
			{"ID": "1", "Name": "", "Extra": "x"},
		},
	}

	got := ds.Normalize()

	assert.Equal(t, Row{"ID": "1", "Name": NA, "Amount": NA}, got.Rows[0])
	assert.Equal(t, "", ds.Rows[0]["Name"], "input must not be modified")
	assert.Equal(t, "x", ds.Rows[0]["Extra"])
}

func TestNormalizeIsIdempotent(t *testing.T) {
	ds := &Dataset{
		Schema: Schema{"ID", "Name"},
		Rows:   []Row{{"ID": "1"}, {"Name": "Bob"}},
	}
	once := ds.Normalize()
	assert.True(t, once.Equal(once.Normalize()))
}

func TestEqual(t *testing.T) {
	a := &Dataset{Schema: Schema{"ID"}, Rows: []Row{{"ID": "1"}}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Rows[0]["ID"] = "2"
	assert.False(t, a.Equal(b))
	assert.Equal(t, "1", a.Rows[0]["ID"], "clone must be deep")

	c := &Dataset{Schema: Schema{"Key"}, Rows: []Row{{"Key": "1"}}}
	assert.False(t, a.Equal(c))
}

func TestFilterIsCaseInsensitive(t *testing.T) {
	ds := &Dataset{
		Schema: Schema{"ID", "Name", "City"},
		Rows: []Row{
			{"ID": "1", "Name": "Alice", "City": "Dublin"},
			{"ID": "2", "Name": "Bob", "City": "dublin"},
			{"ID": "3", "Name": "Carol", "City": "Cork"},
		},
	}

	got := ds.Filter(map[string]string{"City": "DUBLIN"})
	assert.Len(t, got, 2)

	got = ds.Filter(map[string]string{"City": "dublin", "Name": "bob"})
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0]["ID"])

	assert.Len(t, ds.Filter(map[string]string{"City": ""}), 3)
	assert.Len(t, ds.Filter(map[string]string{"Unknown": "x"}), 3)
	assert.Empty(t, ds.Filter(map[string]string{"Name": "dave"}))
}

func TestSchemaID(t *testing.T) {
	assert.Equal(t, "ID", Schema{"ID", "Name"}.ID())
	assert.Equal(t, "", Schema{}.ID())
	assert.Equal(t, 1, Schema{"ID", "Name"}.Index("Name"))
	assert.Equal(t, -1, Schema{"ID"}.Index("Name"))
}
