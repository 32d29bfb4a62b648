package vector

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// ShapefileReader reads ESRI polygon shapefiles.
type ShapefileReader struct{}

// Read implements Reader. Attribute values are trimmed of padding. The
// attribute table (.dbf) must sit next to the .shp.
func (ShapefileReader) Read(path string) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrSourceNotFound, "vector: open shapefile %s", path)
		}
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	dbf := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	if _, err := os.Stat(dbf); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrSourceNotFound, "vector: attribute table %s for shapefile %s", dbf, path)
		}
		return nil, eris.Wrapf(err, "vector: stat %s", dbf)
	}

	fields := reader.Fields()
	layer := &Layer{Fields: make([]string, len(fields))}
	for i, f := range fields {
		layer.Fields[i] = strings.TrimRight(f.String(), "\x00")
	}

	for reader.Next() {
		n, shape := reader.Shape()

		props := make(map[string]string, len(fields))
		for i, name := range layer.Fields {
			props[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		var mp *geom.MultiPolygon
		switch s := shape.(type) {
		case nil, *shp.Null:
		case *shp.Polygon:
			mp = shapeToMultiPolygon(s)
		default:
			return nil, eris.Wrapf(ErrUnsupportedGeometry, "vector: %s record %d is %T", path, n, shape)
		}
		layer.Features = append(layer.Features, Feature{Properties: props, Geometry: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "vector: read shapefile %s", path)
	}
	return layer, nil
}

// shapeToMultiPolygon groups shapefile rings into polygons. Clockwise rings
// start a new polygon; counter-clockwise rings are holes of the polygon
// before them. Rings are then reoriented to the GeoJSON convention (outer
// counter-clockwise, holes clockwise) so Area is positive.
func shapeToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys [][][]float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("vector: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		hole := xy.IsRingCounterClockwise(geom.XY, flat)
		if hole && len(polys) > 0 {
			last := len(polys) - 1
			polys[last] = append(polys[last], orient(flat, false))
			continue
		}
		polys = append(polys, [][]float64{orient(flat, true)})
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, rings := range polys {
		poly := geom.NewPolygon(geom.XY)
		for _, flat := range rings {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				zap.L().Debug("vector: skipping malformed ring", zap.Int("polygon", i), zap.Error(err))
			}
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("vector: skipping malformed polygon", zap.Int("polygon", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// orient returns the XY ring flat wound counter-clockwise when ccw is set,
// clockwise otherwise.
func orient(flat []float64, ccw bool) []float64 {
	if xy.IsRingCounterClockwise(geom.XY, flat) == ccw {
		return flat
	}
	out := make([]float64, len(flat))
	for i, j := 0, len(flat)-2; j >= 0; i, j = i+2, j-2 {
		out[i], out[i+1] = flat[j], flat[j+1]
	}
	return out
}
