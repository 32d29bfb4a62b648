package reclass

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gis-cli/internal/raster"
)

func TestEqualInterval_Example(t *testing.T) {
	bins, err := EqualInterval([]float64{0, 1, 2, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Bin{
		{Start: 0, To: 1.5, Value: 0},
		{Start: 1.5, To: 3, Value: 1},
	}, bins)
}

func TestEqualInterval_Properties(t *testing.T) {
	values := []float64{math.NaN(), -3.7, 12.1, 0.3, 8.8, math.NaN(), 5.05}
	lo, hi := -3.7, 12.1

	for _, n := range []int{1, 2, 3, 7, 10, 100} {
		bins, err := EqualInterval(values, n)
		require.NoError(t, err)
		require.Len(t, bins, n)

		w := (hi - lo) / float64(n)
		for i, b := range bins {
			assert.Equal(t, float64(i), b.Value)
			assert.InDelta(t, lo+float64(i)*w, b.Start, 1e-9)
			if i > 0 {
				assert.Greater(t, b.Start, bins[i-1].Start, "starts must ascend")
				assert.Equal(t, bins[i-1].To, b.Start, "bins must be contiguous")
			}
		}
		assert.InDelta(t, lo+float64(n)*w, bins[n-1].To, 1e-9)
		assert.Equal(t, lo, bins[0].Start)
		assert.Equal(t, hi, bins[n-1].To)
	}
}

func TestEqualInterval_MaximumIsClassified(t *testing.T) {
	values := []float64{0.1, 0.2, 0.7}
	bins, err := EqualInterval(values, 3)
	require.NoError(t, err)

	out := Reclassify(values, Intervals(bins...))
	assert.Equal(t, 2.0, out[2])
}

func TestEqualInterval_Errors(t *testing.T) {
	_, err := EqualInterval([]float64{4, 4, 4}, 3)
	assert.True(t, errors.Is(err, ErrDegenerateRange))
	assert.Contains(t, err.Error(), "min 4 equals max 4")

	_, err = EqualInterval([]float64{math.NaN()}, 2)
	assert.True(t, errors.Is(err, ErrDegenerateRange))

	_, err = EqualInterval(nil, 2)
	assert.True(t, errors.Is(err, ErrDegenerateRange))

	_, err = EqualInterval([]float64{1, 2}, 0)
	assert.True(t, errors.Is(err, ErrInvalidBinCount))
}

func TestReclassify_Intervals(t *testing.T) {
	bins := []Bin{
		{Start: 0, To: 10, Value: 100},
		{Start: 10, To: 20, Value: 200},
		{Start: 20, To: 30, Value: 300},
	}
	values := []float64{0, 5, 9.999, 10, 19, 20, 30, 30.0001, -1}

	out := Reclassify(values, Intervals(bins...))
	assert.Equal(t, []float64{100, 100, 100, 200, 200, 300, 300, 30.0001, -1}, out)
}

func TestReclassify_OnlyLastBinIsClosed(t *testing.T) {
	bins := []Bin{
		{Start: 0, To: 1, Value: 7},
		{Start: 2, To: 3, Value: 8},
	}
	// 1 equals the first bin's upper edge but the first bin is half-open.
	out := Reclassify([]float64{1, 3}, Intervals(bins...))
	assert.Equal(t, []float64{1, 8}, out)
}

func TestReclassify_LaterRulesOverwrite(t *testing.T) {
	// The first rule moves 5 into 15, which the second rule then claims.
	bins := []Bin{
		{Start: 0, To: 10, Value: 15},
		{Start: 10, To: 20, Value: 1},
	}
	out := Reclassify([]float64{5, 12, 25}, Intervals(bins...))
	assert.Equal(t, []float64{1, 1, 25}, out)

	overlapping := []Bin{
		{Start: 0, To: 10, Value: 50},
		{Start: 0, To: 100, Value: 60},
	}
	out = Reclassify([]float64{3, 70}, Intervals(overlapping...))
	assert.Equal(t, []float64{60, 60}, out)
}

func TestReclassify_Exact(t *testing.T) {
	out := Reclassify([]float64{1, 2, 3, 2}, Exact(Remap{Old: 2, New: 20}, Remap{Old: 3, New: 30}))
	assert.Equal(t, []float64{1, 20, 30, 20}, out)

	// Chained remaps apply in order.
	out = Reclassify([]float64{1, 2}, Exact(Remap{Old: 1, New: 2}, Remap{Old: 2, New: 9}))
	assert.Equal(t, []float64{9, 9}, out)
}

func TestReclassify_DoesNotMutateInput(t *testing.T) {
	in := []float64{1, 2, 3}
	_ = Reclassify(in, Exact(Remap{Old: 1, New: 5}))
	assert.Equal(t, []float64{1, 2, 3}, in)

	g := raster.NewGrid(1, 3, in)
	out := ReclassifyGrid(g, Intervals(Bin{Start: 0, To: 5, Value: 0}))
	assert.Equal(t, []float64{0, 0, 0}, out.Data)
	assert.Equal(t, []float64{1, 2, 3}, g.Data)
	assert.Equal(t, g.Shape(), out.Shape())
}

func TestReclassify_ZeroTable(t *testing.T) {
	var tbl Table
	assert.True(t, tbl.IsZero())
	assert.Equal(t, "none", tbl.Kind().String())
	assert.Equal(t, []float64{1, 2}, Reclassify([]float64{1, 2}, tbl))
}

func TestTable_Accessors(t *testing.T) {
	ex := Exact(Remap{Old: 1, New: 2})
	assert.Equal(t, KindExact, ex.Kind())
	assert.Equal(t, "exact", ex.Kind().String())
	assert.Equal(t, 1, ex.Len())
	assert.Nil(t, ex.Bins())
	assert.Equal(t, []Remap{{Old: 1, New: 2}}, ex.Remaps())

	iv := Intervals(Bin{Start: 0, To: 1, Value: 0}, Bin{Start: 1, To: 2, Value: 1})
	assert.Equal(t, KindInterval, iv.Kind())
	assert.Equal(t, "interval", iv.Kind().String())
	assert.Equal(t, 2, iv.Len())
	assert.Nil(t, iv.Remaps())

	bins := iv.Bins()
	bins[0].Value = 99
	assert.Equal(t, 0.0, iv.Bins()[0].Value, "Bins returns a copy")
}
