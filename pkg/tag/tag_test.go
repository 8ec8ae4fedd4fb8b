package tag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_Lookup(t *testing.T) {
	tbl := DefaultTable()

	assert.Equal(t, Coordinate{X: 1, Y: 2}, tbl.Lookup("14081B74"))
	assert.Equal(t, Coordinate{X: 2, Y: 3}, tbl.Lookup("640fcf73"), "lookup ignores case")
	assert.Equal(t, Unknown, tbl.Lookup("DEADBEEF"))
	assert.Equal(t, Unknown, tbl.Lookup(""))
	assert.True(t, tbl.Lookup("nope").IsUnknown())
}

func TestLookup_RoundTrip(t *testing.T) {
	records := []Record{
		{ID: "AA01", Coordinate: Coordinate{X: 0, Y: 0}},
		{ID: "AA02", Coordinate: Coordinate{X: 4, Y: -1}},
	}
	tbl := NewTable(records...)
	for _, r := range records {
		assert.Equal(t, r.Coordinate, tbl.Lookup(r.ID))
	}
	assert.Equal(t, records, tbl.Records())
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	data := `
- id: 14081b74
  x: 5
  y: 6
- id: "00112233"
  x: 1
  y: 1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, Coordinate{X: 5, Y: 6}, tbl.Lookup("14081B74"))
	assert.Equal(t, "(1,1)", tbl.Lookup("00112233").String())
}

func TestLoadTable_EmptyID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- {x: 1, y: 2}\n"), 0644))

	_, err := LoadTable(path)
	assert.ErrorContains(t, err, "empty id")
}

func TestCoordinate_String(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "(2,3)", Coordinate{X: 2, Y: 3}.String())
}
