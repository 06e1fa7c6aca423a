package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/backend/memory"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definition = `
root = "/data"
threshold = 1e-3
concurrent_scan = true

[[coords]]
name = "time"
units = "hours since 2007-01-01"
time = true

[[coords]]
name = "lat"
units = "degrees_north"

[[filegroups]]
name = "sst"
subdir = "SST"
pregex = '%(prefix)_%(time:Y)%(time:doy)\.nc'
replacements = { prefix = "SST" }
variables = [{ name = "sst", in = "analysed_sst" }]

  [[filegroups.coords]]
  name = "time"
  scan = "shared"
  scanners = ["date"]

  [[filegroups.coords]]
  name = "lat"
  scanners = ["values", "units"]
  selection = "0:2"
`

func TestParse(t *testing.T) {
	ds, err := Parse([]byte(definition))
	require.NoError(t, err)
	assert.Equal(t, "/data", ds.Root)
	assert.Equal(t, 1e-3, ds.Threshold)
	assert.True(t, ds.ConcurrentScan)
	require.Len(t, ds.Filegroups, 1)
	fg := ds.Filegroups[0]
	assert.Equal(t, "SST", fg.Replacements["prefix"])
	assert.Equal(t, []Variable{{Name: "sst", In: "analysed_sst"}}, fg.Variables)
	require.Len(t, fg.Coords, 2)
	assert.Equal(t, "shared", fg.Coords[0].Scan)
	assert.Nil(t, fg.Coords[1].Index)

	tests := []string{
		`root = "/data"`,
		"root = \"/data\"\n[[filegroups]]\nname = \"a\"\n",
		"root = \"/data\"\n[[coords]]\nname = \"var\"\n[[filegroups]]\nname = \"a\"\nscan_variables = true\n",
		"root = \"/data\"\n[[filegroups]]\nname = \"a\"\nscan_variables = true\n[[filegroups.coords]]\nname = \"depth\"\n",
		"root = [",
	}
	for i, test := range tests {
		if _, err := Parse([]byte(test)); err == nil {
			t.Error(i, "invalid definition accepted")
		}
	}
}

func TestLoadRelativeRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.toml")
	data := "root = \"data\"\n[[filegroups]]\nname = \"a\"\nscan_variables = true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), ds.Root)
}

func TestBuild(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := memory.New(fs)
	for day := 1; day <= 2; day++ {
		w, err := store.Create(fmt.Sprintf("/data/SST/SST_2007%03d.nc", day))
		require.NoError(t, err)
		require.NoError(t, w.WriteDimension("lat", []float64{-10, 0, 10}, nil))
		data, _ := accessor.FromData([]float64{float64(10 * day), float64(10*day + 1), float64(10*day + 2)}, 3)
		require.NoError(t, w.Write("analysed_sst", data, []string{"lat"}, nil))
		require.NoError(t, w.Close())
	}

	ds, err := Parse([]byte(definition))
	require.NoError(t, err)
	db, err := Build(ds, store, fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"sst"}, db.Avail.Variables())
	lat, _ := db.Avail.Coord("lat")
	assert.Equal(t, []float64{-10, 0}, lat.Values())
	tc, _ := db.Avail.Coord("time")
	assert.Equal(t, []float64{12, 36}, tc.Values())

	require.NoError(t, db.Load(key.NewKeyring()))
	sst, err := db.Variable("sst")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 20, 21}, sst.Data())
}
