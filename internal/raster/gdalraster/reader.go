// Package gdalraster reads raster bands through GDAL.
package gdalraster

import (
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gis-cli/internal/raster"
)

var registerOnce sync.Once

// Reader implements raster.Reader for every raster format GDAL knows.
type Reader struct{}

// New registers the GDAL drivers and returns a Reader.
func New() *Reader {
	registerOnce.Do(godal.RegisterAll)
	return &Reader{}
}

// Read implements raster.Reader.
func (r *Reader) Read(path string, band int) (*raster.Grid, error) {
	log := zap.L().With(zap.String("component", "raster.gdal"), zap.String("path", path))

	ds, err := godal.Open(path, godal.RasterOnly(), godal.ErrLogger(quiet))
	if err != nil {
		return nil, eris.Wrapf(raster.ErrSourceNotFound, "raster: open %s: %v", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			log.Warn("close dataset", zap.Error(cerr))
		}
	}()

	bands := ds.Bands()
	if band < 1 || band > len(bands) {
		return nil, eris.Wrapf(raster.ErrBandIndex, "raster: band %d requested from %s (band count %d)", band, path, len(bands))
	}
	b := bands[band-1]

	st := b.Structure()
	data := make([]float64, st.SizeX*st.SizeY)
	if err := b.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return nil, eris.Wrapf(err, "raster: read band %d of %s", band, path)
	}

	g := &raster.Grid{
		Rows: st.SizeY,
		Cols: st.SizeX,
		Data: data,
	}
	g.NoData, g.HasNoData = b.NoData()

	gt, err := ds.GeoTransform()
	if err != nil {
		log.Debug("no geotransform, using pixel coordinates", zap.Error(err))
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}
	g.GeoTransform = gt

	log.Debug("band read",
		zap.Int("band", band),
		zap.Int("rows", g.Rows),
		zap.Int("cols", g.Cols),
		zap.Bool("has_nodata", g.HasNoData),
	)
	return g, nil
}

// quiet keeps GDAL warnings out of the returned error and routes them to zap.
func quiet(ec godal.ErrorCategory, code int, msg string) error {
	if ec <= godal.CE_Warning {
		zap.L().Debug("gdal", zap.Int("code", code), zap.String("msg", msg))
		return nil
	}
	return eris.Errorf("gdal: %s", msg)
}
