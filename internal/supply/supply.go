// Package supply builds cumulative supply curves from a pair of aligned
// rasters: one holding the quantity to aggregate (x) and one holding the
// value to bin on (y).
package supply

import (
	"cmp"
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gis-cli/internal/raster"
	"github.com/sells-group/gis-cli/internal/reclass"
	"github.com/sells-group/gis-cli/internal/tabular"
)

// Sentinel errors.
var (
	ErrShapeMismatch             = eris.New("raster shapes do not match")
	ErrMissingMaskValue          = eris.New("mask source given without a mask value")
	ErrMissingMaskSource         = eris.New("mask value given without a mask source")
	ErrNoBinSpecification        = eris.New("no bin specification")
	ErrAmbiguousBinSpecification = eris.New("more than one bin specification")
)

// Default axis labels.
const (
	DefaultXLabel = "energy"
	DefaultYLabel = "price"
)

// Options configures Build. Exactly one of Bins, BinFile, or NumBins must
// be set.
type Options struct {
	XPath string
	YPath string
	// Band applies to x, y, and the mask. Zero means 1.
	Band int

	XLabel string
	YLabel string

	Bins    reclass.Table
	BinFile string
	NumBins int

	MaskPath   string
	MaskValues []float64
}

// Row is one bin of the curve.
type Row struct {
	Label    float64 // bin lower bound
	Quantity float64 // cumulative x total up to and including this bin
	Start    float64
	To       float64
	Bin      float64
}

// Curve is a supply curve ordered by ascending bin id.
type Curve struct {
	XLabel string
	YLabel string
	Rows   []Row

	// Classes is the resolved reclassification table.
	Classes reclass.Table
	// Unclassified counts y cells that matched no bin and were left out.
	Unclassified int
}

// Build loads the rasters named in opts and computes the curve.
func Build(r raster.Reader, opts Options) (*Curve, error) {
	log := zap.L().With(zap.String("component", "supply"))

	if opts.Band == 0 {
		opts.Band = 1
	}
	if opts.MaskPath == "" && len(opts.MaskValues) > 0 {
		return nil, eris.Wrapf(ErrMissingMaskSource, "supply: mask values %v", opts.MaskValues)
	}
	if opts.XLabel == "" {
		opts.XLabel = DefaultXLabel
	}
	if opts.YLabel == "" {
		opts.YLabel = DefaultYLabel
	}

	xg, err := r.Read(opts.XPath, opts.Band)
	if err != nil {
		return nil, eris.Wrapf(err, "supply: read x %s", opts.XPath)
	}
	yg, err := r.Read(opts.YPath, opts.Band)
	if err != nil {
		return nil, eris.Wrapf(err, "supply: read y %s", opts.YPath)
	}
	if xg.Shape() != yg.Shape() {
		return nil, eris.Wrapf(ErrShapeMismatch, "supply: x shape %s, y shape %s", xg.Shape(), yg.Shape())
	}

	x, y := slices.Clone(xg.Data), slices.Clone(yg.Data)
	if opts.MaskPath != "" {
		x, y, err = applyMask(r, opts, yg.Shape(), x, y)
		if err != nil {
			return nil, err
		}
	}

	zeroNoData(x, xg)
	zeroNoData(y, yg)

	table, err := ResolveBins(opts, y)
	if err != nil {
		return nil, err
	}

	curve := aggregate(x, reclass.Reclassify(y, table), table)
	curve.XLabel, curve.YLabel = opts.XLabel, opts.YLabel

	log.Info("supply curve built",
		zap.String("x", opts.XPath),
		zap.String("y", opts.YPath),
		zap.String("bins", table.Kind().String()),
		zap.Int("rows", len(curve.Rows)),
		zap.Int("cells", len(y)),
	)
	if curve.Unclassified > 0 {
		log.Warn("cells matched no bin", zap.Int("unclassified", curve.Unclassified))
	}
	return curve, nil
}

// applyMask keeps the elements of x and y where the mask equals any of
// opts.MaskValues. The results are flat.
func applyMask(r raster.Reader, opts Options, shape raster.Shape, x, y []float64) ([]float64, []float64, error) {
	if len(opts.MaskValues) == 0 {
		return nil, nil, eris.Wrapf(ErrMissingMaskValue, "supply: mask %s", opts.MaskPath)
	}
	mg, err := r.Read(opts.MaskPath, opts.Band)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "supply: read mask %s", opts.MaskPath)
	}
	if mg.Shape() != shape {
		return nil, nil, eris.Wrapf(ErrShapeMismatch, "supply: mask shape %s, y shape %s", mg.Shape(), shape)
	}

	var mx, my []float64
	for i, m := range mg.Data {
		if slices.Contains(opts.MaskValues, m) {
			mx = append(mx, x[i])
			my = append(my, y[i])
		}
	}
	return mx, my, nil
}

// zeroNoData replaces g's no-data sentinel in vals with 0. A NaN sentinel
// matches NaN cells.
func zeroNoData(vals []float64, g *raster.Grid) {
	if !g.HasNoData {
		return
	}
	nan := math.IsNaN(g.NoData)
	for i, v := range vals {
		if v == g.NoData || (nan && math.IsNaN(v)) {
			vals[i] = 0
		}
	}
}

// ResolveBins turns the bin selection in opts (Bins, BinFile, or NumBins)
// into a table. Equal-interval bins are computed over y.
func ResolveBins(opts Options, y []float64) (reclass.Table, error) {
	var given []string
	if !opts.Bins.IsZero() {
		given = append(given, "bins")
	}
	if opts.BinFile != "" {
		given = append(given, "bin file")
	}
	if opts.NumBins != 0 {
		given = append(given, "bin count")
	}
	switch len(given) {
	case 0:
		return reclass.Table{}, eris.Wrap(ErrNoBinSpecification, "supply: set bins, a bin file, or a bin count")
	case 1:
	default:
		return reclass.Table{}, eris.Wrapf(ErrAmbiguousBinSpecification, "supply: got %v", given)
	}

	switch {
	case opts.BinFile != "":
		bins, err := reclass.ReadBinFile(opts.BinFile)
		if err != nil {
			return reclass.Table{}, err
		}
		return reclass.Intervals(bins...), nil
	case opts.NumBins != 0:
		bins, err := reclass.EqualInterval(y, opts.NumBins)
		if err != nil {
			return reclass.Table{}, eris.Wrap(err, "supply: equal-interval bins")
		}
		return reclass.Intervals(bins...), nil
	default:
		return opts.Bins, nil
	}
}

// bucket collects the bounds and x total of one bin id.
type bucket struct {
	id, start, to, total float64
}

func buckets(t reclass.Table) []bucket {
	byID := make(map[float64]*bucket)
	add := func(id, lo, hi float64) {
		b, ok := byID[id]
		if !ok {
			byID[id] = &bucket{id: id, start: lo, to: hi}
			return
		}
		b.start, b.to = math.Min(b.start, lo), math.Max(b.to, hi)
	}
	for _, b := range t.Bins() {
		add(b.Value, b.Start, b.To)
	}
	for _, m := range t.Remaps() {
		add(m.New, m.Old, m.Old)
	}

	out := make([]bucket, 0, len(byID))
	for _, b := range byID {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b bucket) int { return cmp.Compare(a.id, b.id) })
	return out
}

// aggregate sums x per reclassified id and accumulates in ascending id order.
func aggregate(x, ids []float64, t reclass.Table) *Curve {
	bs := buckets(t)
	index := make(map[float64]int, len(bs))
	for i, b := range bs {
		index[b.id] = i
	}

	c := &Curve{Classes: t, Rows: make([]Row, 0, len(bs))}
	for i, id := range ids {
		j, ok := index[id]
		if !ok {
			c.Unclassified++
			continue
		}
		bs[j].total += x[i]
	}

	var cum float64
	for _, b := range bs {
		cum += b.total
		c.Rows = append(c.Rows, Row{Label: b.start, Quantity: cum, Start: b.start, To: b.to, Bin: b.id})
	}
	return c
}

// Quantities returns the cumulative quantity column.
func (c *Curve) Quantities() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Quantity
	}
	return out
}

// Table lays the curve out as <y label>, <x label>, start_value, to_value, bin.
func (c *Curve) Table() *tabular.Table {
	t := &tabular.Table{
		Name:    "supply_curve",
		Columns: []string{c.YLabel, c.XLabel, "start_value", "to_value", "bin"},
	}
	for _, r := range c.Rows {
		t.Append(r.Label, r.Quantity, r.Start, r.To, r.Bin)
	}
	return t
}
