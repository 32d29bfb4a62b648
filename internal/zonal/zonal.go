// Package zonal computes raster statistics per polygon zone.
package zonal

import (
	"context"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gis-cli/internal/raster"
	"github.com/sells-group/gis-cli/internal/tabular"
	"github.com/sells-group/gis-cli/internal/vector"
)

// Sentinel errors.
var (
	ErrFieldNotFound = eris.New("field not in attribute table")
	ErrUnknownStat   = eris.New("unknown statistic")
	ErrRotatedRaster = eris.New("rotated rasters are not supported")
)

// Options configures a zonal statistics run.
type Options struct {
	PolygonPath string
	RasterPath  string
	Band        int
	// OutPath is optional; when set the records are written there.
	OutPath    string
	KeyField   string
	Stats      []Stat
	AllTouched bool
	// Workers bounds the zones computed concurrently. Zero means GOMAXPROCS.
	Workers int
}

// Record holds the statistics of one zone, in requested order.
type Record struct {
	Key    string
	Values []StatValue
}

// Get returns the value of s. ok is false when s was not requested or the
// zone had no valid cells.
func (r Record) Get(s Stat) (float64, bool) {
	for _, v := range r.Values {
		if v.Stat == s {
			return v.Value, v.OK
		}
	}
	return 0, false
}

// Run computes one record per feature of the polygon layer, in layer order.
func Run(ctx context.Context, vr vector.Reader, rr raster.Reader, opts Options) ([]Record, error) {
	log := zap.L().With(zap.String("component", "zonal"))

	stats := opts.Stats
	if len(stats) == 0 {
		stats = DefaultStats
	}
	band := opts.Band
	if band == 0 {
		band = 1
	}

	layer, err := vr.Read(opts.PolygonPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zonal: read zones %s", opts.PolygonPath)
	}
	if !layer.HasField(opts.KeyField) {
		return nil, eris.Wrapf(ErrFieldNotFound, "zonal: field %q not in %s; options include: %s",
			opts.KeyField, opts.PolygonPath, strings.Join(layer.Fields, ", "))
	}

	g, err := rr.Read(opts.RasterPath, band)
	if err != nil {
		return nil, eris.Wrapf(err, "zonal: read raster %s", opts.RasterPath)
	}
	px, err := newPixelGrid(g)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	records := make([]Record, len(layer.Features))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range layer.Features {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return eris.Wrap(err, "zonal: cancelled")
			}

			var s summary
			px.cover(f.Geometry, opts.AllTouched, func(idx int) {
				v := g.Data[idx]
				if g.IsNoData(v) {
					s.nodata++
					return
				}
				s.values = append(s.values, v)
			})
			records[i] = Record{Key: f.Properties[opts.KeyField], Values: s.compute(stats)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "zonal: cancelled")
	}

	log.Info("zonal statistics computed",
		zap.String("zones", opts.PolygonPath),
		zap.String("raster", opts.RasterPath),
		zap.Int("records", len(records)),
		zap.Bool("all_touched", opts.AllTouched),
	)

	if opts.OutPath != "" {
		if err := WriteTable(ctx, opts.OutPath, opts.KeyField, stats, records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Table lays records out with the key column first and one column per stat.
// Missing values become empty cells; counts are integers.
func Table(keyField string, stats []Stat, records []Record) *tabular.Table {
	t := &tabular.Table{Name: "zonal_stats", Columns: make([]string, 0, len(stats)+1)}
	t.Columns = append(t.Columns, keyField)
	for _, s := range stats {
		t.Columns = append(t.Columns, string(s))
	}
	for _, r := range records {
		row := make([]any, 0, len(stats)+1)
		row = append(row, r.Key)
		for _, s := range stats {
			v, ok := r.Get(s)
			switch {
			case !ok:
				row = append(row, nil)
			case s.integral():
				row = append(row, int(v))
			default:
				row = append(row, v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteTable writes records to path; the format follows the extension.
func WriteTable(ctx context.Context, path, keyField string, stats []Stat, records []Record) error {
	if err := tabular.WriteFile(ctx, path, Table(keyField, stats, records)); err != nil {
		return eris.Wrapf(err, "zonal: write %s", path)
	}
	return nil
}
