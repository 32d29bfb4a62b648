package supply

import (
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gis-cli/internal/plot"
	"github.com/sells-group/gis-cli/internal/raster"
	"github.com/sells-group/gis-cli/internal/reclass"
)

// memReader serves grids by path and records which paths were read.
type memReader struct {
	grids map[string]*raster.Grid
	reads []string
}

func (m *memReader) Read(path string, band int) (*raster.Grid, error) {
	m.reads = append(m.reads, path)
	g, ok := m.grids[path]
	if !ok {
		return nil, raster.ErrSourceNotFound
	}
	return g.Clone(), nil
}

func exampleReader() *memReader {
	return &memReader{grids: map[string]*raster.Grid{
		"x.asc": raster.NewGrid(2, 2, []float64{1, 2, 3, 4}),
		"y.asc": raster.NewGrid(2, 2, []float64{0, 1, 2, 3}),
	}}
}

func TestBuild_Example(t *testing.T) {
	curve, err := Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", NumBins: 2})
	require.NoError(t, err)

	assert.Equal(t, "energy", curve.XLabel)
	assert.Equal(t, "price", curve.YLabel)
	assert.Equal(t, []Row{
		{Label: 0, Quantity: 3, Start: 0, To: 1.5, Bin: 0},
		{Label: 1.5, Quantity: 10, Start: 1.5, To: 3, Bin: 1},
	}, curve.Rows)
	assert.Equal(t, []float64{3, 10}, curve.Quantities())
	assert.Zero(t, curve.Unclassified)
	assert.Equal(t, []reclass.Bin{{Start: 0, To: 1.5, Value: 0}, {Start: 1.5, To: 3, Value: 1}}, curve.Classes.Bins())
}

func TestBuild_ShapeMismatchBeforeAggregation(t *testing.T) {
	r := &memReader{grids: map[string]*raster.Grid{
		"x.asc":    raster.NewGrid(2, 2, []float64{1, 2, 3, 4}),
		"y.asc":    raster.NewGrid(1, 4, []float64{0, 1, 2, 3}),
		"mask.asc": raster.NewGrid(2, 2, []float64{1, 1, 1, 1}),
	}}
	curve, err := Build(r, Options{
		XPath: "x.asc", YPath: "y.asc", NumBins: 2,
		MaskPath: "mask.asc", MaskValues: []float64{1},
	})
	require.Error(t, err)
	assert.Nil(t, curve)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Contains(t, err.Error(), "(2, 2)")
	assert.Contains(t, err.Error(), "(1, 4)")
	assert.Equal(t, []string{"x.asc", "y.asc"}, r.reads, "mask is never read")
}

func TestBuild_MaskShapeMismatch(t *testing.T) {
	r := exampleReader()
	r.grids["mask.asc"] = raster.NewGrid(4, 1, []float64{1, 1, 1, 1})
	_, err := Build(r, Options{XPath: "x.asc", YPath: "y.asc", NumBins: 2, MaskPath: "mask.asc", MaskValues: []float64{1}})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestBuild_MissingMaskValue(t *testing.T) {
	r := exampleReader()
	r.grids["mask.asc"] = raster.NewGrid(2, 2, []float64{1, 1, 1, 1})
	_, err := Build(r, Options{XPath: "x.asc", YPath: "y.asc", NumBins: 2, MaskPath: "mask.asc"})
	assert.True(t, errors.Is(err, ErrMissingMaskValue))
	assert.NotContains(t, r.reads, "mask.asc")
}

func TestBuild_MaskValueWithoutSource(t *testing.T) {
	r := exampleReader()
	_, err := Build(r, Options{XPath: "x.asc", YPath: "y.asc", NumBins: 2, MaskValues: []float64{1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingMaskSource))
	assert.Contains(t, err.Error(), "[1]")
	assert.Empty(t, r.reads)
}

func TestBuild_MaskMatchesPrefilter(t *testing.T) {
	x := []float64{5, 1, 7, 2, 9, 4, 3, 8, 6}
	y := []float64{0.5, 2, 9, 4.5, 3, 7, 1, 6, 8}
	m := []float64{1, 2, 1, 3, 2, 1, 3, 1, 2}
	keep := []float64{1, 3}

	var fx, fy []float64
	for i := range m {
		if m[i] == 1 || m[i] == 3 {
			fx = append(fx, x[i])
			fy = append(fy, y[i])
		}
	}

	masked := &memReader{grids: map[string]*raster.Grid{
		"x": raster.NewGrid(3, 3, x),
		"y": raster.NewGrid(3, 3, y),
		"m": raster.NewGrid(3, 3, m),
	}}
	prefiltered := &memReader{grids: map[string]*raster.Grid{
		"x": raster.NewGrid(1, len(fx), fx),
		"y": raster.NewGrid(1, len(fy), fy),
	}}

	for _, n := range []int{1, 3, 4} {
		got, err := Build(masked, Options{XPath: "x", YPath: "y", NumBins: n, MaskPath: "m", MaskValues: keep})
		require.NoError(t, err)
		want, err := Build(prefiltered, Options{XPath: "x", YPath: "y", NumBins: n})
		require.NoError(t, err)
		assert.Equal(t, want.Rows, got.Rows, "n=%d", n)
	}

	got, err := Build(masked, Options{XPath: "x", YPath: "y", NumBins: 2, MaskPath: "m", MaskValues: keep})
	require.NoError(t, err)
	var total float64
	for _, v := range fx {
		total += v
	}
	assert.Equal(t, total, got.Rows[len(got.Rows)-1].Quantity)
}

func TestBuild_BinSpecification(t *testing.T) {
	_, err := Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc"})
	assert.True(t, errors.Is(err, ErrNoBinSpecification))

	_, err = Build(exampleReader(), Options{
		XPath: "x.asc", YPath: "y.asc", NumBins: 2,
		Bins: reclass.Intervals(reclass.Bin{Start: 0, To: 3, Value: 0}),
	})
	assert.True(t, errors.Is(err, ErrAmbiguousBinSpecification))

	_, err = Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", NumBins: -1})
	assert.True(t, errors.Is(err, reclass.ErrInvalidBinCount))

	flat := &memReader{grids: map[string]*raster.Grid{
		"x": raster.NewGrid(1, 2, []float64{1, 2}),
		"y": raster.NewGrid(1, 2, []float64{5, 5}),
	}}
	_, err = Build(flat, Options{XPath: "x", YPath: "y", NumBins: 2})
	assert.True(t, errors.Is(err, reclass.ErrDegenerateRange))
}

func TestBuild_BinFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bins.csv")
	require.NoError(t, os.WriteFile(path, []byte("start_value,to_value,new_value\n0,2,1\n2,3,2\n"), 0o644))

	curve, err := Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", BinFile: path, XLabel: "kwh", YLabel: "cost"})
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Label: 0, Quantity: 3, Start: 0, To: 2, Bin: 1},
		{Label: 2, Quantity: 10, Start: 2, To: 3, Bin: 2},
	}, curve.Rows)
	assert.Equal(t, []string{"cost", "kwh", "start_value", "to_value", "bin"}, curve.Table().Columns)

	_, err = Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", BinFile: filepath.Join(t.TempDir(), "none.csv")})
	assert.Error(t, err)
}

func TestBuild_ExactRemapsAndUnclassified(t *testing.T) {
	r := &memReader{grids: map[string]*raster.Grid{
		"x": raster.NewGrid(1, 4, []float64{1, 1, 1, 1}),
		"y": raster.NewGrid(1, 4, []float64{1, 2, 3, 4}),
	}}
	bins := reclass.Exact(
		reclass.Remap{Old: 1, New: 10},
		reclass.Remap{Old: 2, New: 20},
		reclass.Remap{Old: 3, New: 10},
	)
	curve, err := Build(r, Options{XPath: "x", YPath: "y", Bins: bins})
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Label: 1, Quantity: 2, Start: 1, To: 3, Bin: 10},
		{Label: 2, Quantity: 3, Start: 2, To: 2, Bin: 20},
	}, curve.Rows)
	assert.Equal(t, 1, curve.Unclassified)
}

func TestBuild_DuplicateIDsCollapse(t *testing.T) {
	bins := reclass.Intervals(
		reclass.Bin{Start: 0, To: 1, Value: 0},
		reclass.Bin{Start: 1, To: 2, Value: 1},
		reclass.Bin{Start: 2, To: 3, Value: 0},
	)
	curve, err := Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", Bins: bins})
	require.NoError(t, err)
	// y=0 and y=2,3 land in id 0; y=1 lands in id 1.
	assert.Equal(t, []Row{
		{Label: 0, Quantity: 8, Start: 0, To: 3, Bin: 0},
		{Label: 1, Quantity: 10, Start: 1, To: 2, Bin: 1},
	}, curve.Rows)
}

func TestBuild_NoData(t *testing.T) {
	xg := raster.NewGrid(1, 4, []float64{1, -1, 3, 4})
	xg.NoData, xg.HasNoData = -1, true
	yg := raster.NewGrid(1, 4, []float64{-9999, 5, 10, math.NaN()})
	yg.NoData, yg.HasNoData = -9999, true
	r := &memReader{grids: map[string]*raster.Grid{"x": xg, "y": yg}}

	bins := reclass.Intervals(
		reclass.Bin{Start: 0, To: 5, Value: 0},
		reclass.Bin{Start: 5, To: 10, Value: 1},
	)
	curve, err := Build(r, Options{XPath: "x", YPath: "y", Bins: bins})
	require.NoError(t, err)
	// y no-data becomes 0 (bin 0); x no-data contributes 0; NaN y is unclassified.
	assert.Equal(t, []float64{1, 4}, curve.Quantities())
	assert.Equal(t, 1, curve.Unclassified)

	zero := raster.NewGrid(1, 2, []float64{0, 2})
	zero.HasNoData = true
	r = &memReader{grids: map[string]*raster.Grid{"x": zero, "y": raster.NewGrid(1, 2, []float64{1, 1})}}
	curve, err = Build(r, Options{XPath: "x", YPath: "y", Bins: reclass.Intervals(reclass.Bin{Start: 0, To: 2, Value: 0})})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, curve.Quantities())
}

func TestBuild_SourceNotFound(t *testing.T) {
	_, err := Build(exampleReader(), Options{XPath: "missing.asc", YPath: "y.asc", NumBins: 2})
	assert.True(t, errors.Is(err, raster.ErrSourceNotFound))
}

func TestExport(t *testing.T) {
	curve, err := Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", NumBins: 2})
	require.NoError(t, err)

	dir := t.TempDir()
	opts := ExportOptions{
		TablePath: filepath.Join(dir, "curve.csv"),
		PlotPath:  filepath.Join(dir, "curve.png"),
		Plot:      plot.Options{Width: 320, Height: 240},
	}
	require.NoError(t, Export(context.Background(), curve, opts))

	data, err := os.ReadFile(opts.TablePath)
	require.NoError(t, err)
	assert.Equal(t, "price,energy,start_value,to_value,bin\n0,3,0,1.5,0\n1.5,10,1.5,3,1\n", string(data))

	f, err := os.Open(opts.PlotPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestExport_Errors(t *testing.T) {
	curve, err := Build(exampleReader(), Options{XPath: "x.asc", YPath: "y.asc", NumBins: 2})
	require.NoError(t, err)
	dir := t.TempDir()

	err = Export(context.Background(), curve, ExportOptions{PlotPath: filepath.Join(dir, "curve.svg")})
	assert.True(t, errors.Is(err, plot.ErrUnsupportedFormat))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Export(ctx, curve, ExportOptions{PlotPath: filepath.Join(dir, "curve.png")})
	assert.True(t, errors.Is(err, context.Canceled))

	require.NoError(t, Export(context.Background(), curve, ExportOptions{}))
}
