package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gis-cli/internal/raster"
	"github.com/sells-group/gis-cli/internal/reclass"
	"github.com/sells-group/gis-cli/internal/supply"
	"github.com/sells-group/gis-cli/internal/zonal"
)

const (
	xGrid = "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n3 4\n"
	yGrid = "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n0 1\n2 3\n"
	ndGrid = "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\nNODATA_value -9999\n" +
		"5 -9999\n7 8\n"
	zonesJSON = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"name":"all"},
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
	  {"type":"Feature","properties":{"name":"west"},
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,2],[0,2],[0,0]]]}}]}`
)

// workspace writes the fixture files into a temp dir, makes it the working
// directory, and limits raster reads to the ASCII reader.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"x.asc":         xGrid,
		"y.asc":         yGrid,
		"nd.asc":        ndGrid,
		"zones.geojson": zonesJSON,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	orig := newRasterReader
	newRasterReader = func() raster.Reader {
		m := raster.NewMux(nil)
		m.Handle(".asc", raster.ASCIIReader{})
		return m
	}
	t.Cleanup(func() { newRasterReader = orig })
	return dir
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetErr(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSupplyCurveCommand(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bins", "2",
		"--out", "curve.csv", "--plot", "curve.png", "--plot-width", "200", "--plot-height", "150",
		"--save-bins", "bins.yaml")
	require.NoError(t, err)
	assert.Equal(t, "supply curve: 2 bins, cumulative energy 10.00\n", out)
	assert.NotEmpty(t, runID)

	data, err := os.ReadFile(filepath.Join(dir, "curve.csv"))
	require.NoError(t, err)
	assert.Equal(t, "price,energy,start_value,to_value,bin\n0,3,0,1.5,0\n1.5,10,1.5,3,1\n", string(data))
	assert.FileExists(t, filepath.Join(dir, "curve.png"))

	bins, err := reclass.ReadBinFile(filepath.Join(dir, "bins.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []reclass.Bin{{Start: 0, To: 1.5, Value: 0}, {Start: 1.5, To: 3, Value: 1}}, bins)

	// Replaying the saved bins gives the same curve.
	out, err = execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bin-file", "bins.yaml",
		"--x-label", "kwh", "--out", "replay.csv")
	require.NoError(t, err)
	assert.Equal(t, "supply curve: 2 bins, cumulative kwh 10.00\n", out)
	data, err = os.ReadFile(filepath.Join(dir, "replay.csv"))
	require.NoError(t, err)
	assert.Equal(t, "price,kwh,start_value,to_value,bin\n0,3,0,1.5,0\n1.5,10,1.5,3,1\n", string(data))
}

func TestSupplyCurveCommand_Mask(t *testing.T) {
	workspace(t)

	// Keep the cells where y is 0 or 3.
	out, err := execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bin", "0:3:0",
		"--mask", "y.asc", "--mask-value", "0,3")
	require.NoError(t, err)
	assert.Equal(t, "supply curve: 1 bins, cumulative energy 5.00\n", out)
}

func TestSupplyCurveCommand_Errors(t *testing.T) {
	workspace(t)

	_, err := execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc")
	assert.True(t, errors.Is(err, supply.ErrNoBinSpecification))

	_, err = execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bins", "2", "--bin", "0:1:0")
	assert.True(t, errors.Is(err, supply.ErrAmbiguousBinSpecification))

	_, err = execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bins", "2", "--mask", "y.asc")
	assert.True(t, errors.Is(err, supply.ErrMissingMaskValue))

	_, err = execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bins", "2", "--mask-value", "1")
	assert.True(t, errors.Is(err, supply.ErrMissingMaskSource))

	_, err = execute(t, "supply-curve", "--x", "missing.asc", "--y", "y.asc", "--bins", "2")
	assert.True(t, errors.Is(err, raster.ErrSourceNotFound))

	_, err = execute(t, "supply-curve", "--x", "x.asc", "--y", "y.asc", "--bin", "1:10", "--save-bins", "b.csv")
	assert.ErrorContains(t, err, "--save-bins needs interval bins")
}

func TestBinsCommand(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "bins", "--raster", "y.asc", "--n", "2")
	require.NoError(t, err)
	assert.Equal(t, "start_value,to_value,new_value\n0,1.5,0\n1.5,3,1\n", out)

	out, err = execute(t, "bins", "--raster", "nd.asc", "--n", "3", "--out", "nd.csv")
	require.NoError(t, err)
	assert.Equal(t, "3 bins written to nd.csv\n", out)
	bins, err := reclass.ReadBinFile(filepath.Join(dir, "nd.csv"))
	require.NoError(t, err)
	require.Len(t, bins, 3)
	assert.Equal(t, 5.0, bins[0].Start, "no-data is ignored")
	assert.Equal(t, 8.0, bins[2].To)

	_, err = execute(t, "bins", "--raster", "y.asc", "--n", "0")
	assert.True(t, errors.Is(err, reclass.ErrInvalidBinCount))
}

func TestReclassCommand(t *testing.T) {
	workspace(t)

	out, err := execute(t, "reclass", "--raster", "y.asc", "--bin", "0:2:10", "--bin", "2:3:20")
	require.NoError(t, err)
	assert.Equal(t, "class,cells\n10,2\n20,2\n", out)

	out, err = execute(t, "reclass", "--raster", "nd.asc", "--bins", "1")
	require.NoError(t, err)
	assert.Equal(t, "class,cells\n0,3\n", out)
}

func TestInfoCommand(t *testing.T) {
	workspace(t)

	out, err := execute(t, "info", "--raster", "nd.asc")
	require.NoError(t, err)
	assert.Contains(t, out, "shape:     (2, 2)")
	assert.Contains(t, out, "valid:     3 of 4 cells")

	_, err = execute(t, "info", "--raster", "nd.asc", "--band", "2")
	assert.True(t, errors.Is(err, raster.ErrBandIndex))
}

func TestZonalStatsCommand(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "zonal-stats", "--zones", "zones.geojson", "--raster", "x.asc",
		"--field", "name", "--stats", "sum,count")
	require.NoError(t, err)
	assert.Equal(t, "name,sum,count\nall,10,4\nwest,4,2\n", out)

	out, err = execute(t, "zonal-stats", "--zones", "zones.geojson", "--raster", "x.asc",
		"--field", "name", "--out", "stats.csv")
	require.NoError(t, err)
	assert.Equal(t, "zonal stats: 2 zones written to stats.csv\n", out)
	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	assert.Equal(t, "name,min,max,mean,sum\nall,1,4,2.5,10\nwest,1,3,2,4\n", string(data))

	_, err = execute(t, "zonal-stats", "--zones", "zones.geojson", "--raster", "x.asc", "--field", "NAME")
	assert.True(t, errors.Is(err, zonal.ErrFieldNotFound))

	_, err = execute(t, "zonal-stats", "--zones", "zones.geojson", "--raster", "x.asc",
		"--field", "name", "--stats", "avg")
	assert.True(t, errors.Is(err, zonal.ErrUnknownStat))
}
