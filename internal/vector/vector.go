// Package vector reads polygon layers (zones) from vector sources.
package vector

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Sentinel errors returned by readers.
var (
	ErrSourceNotFound      = eris.New("vector source not found")
	ErrUnsupportedFormat   = eris.New("unsupported vector format")
	ErrUnsupportedGeometry = eris.New("unsupported geometry type")
)

// Feature is one zone. Geometry is nil for null shapes.
type Feature struct {
	Properties map[string]string
	Geometry   *geom.MultiPolygon
}

// Layer is an ordered set of features sharing an attribute schema.
type Layer struct {
	Fields   []string
	Features []Feature
}

// HasField reports whether name is one of the layer's attribute fields.
func (l *Layer) HasField(name string) bool {
	for _, f := range l.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Reader loads a polygon layer from path.
type Reader interface {
	Read(path string) (*Layer, error)
}

// Mux dispatches reads by lower-case file extension.
type Mux struct {
	readers map[string]Reader
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{readers: make(map[string]Reader)}
}

// Default returns a Mux that handles shapefiles and GeoJSON.
func Default() *Mux {
	m := NewMux()
	m.Handle(".shp", ShapefileReader{})
	m.Handle(".geojson", GeoJSONReader{})
	m.Handle(".json", GeoJSONReader{})
	return m
}

// Handle registers r for ext.
func (m *Mux) Handle(ext string, r Reader) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	m.readers[ext] = r
}

// Read implements Reader.
func (m *Mux) Read(path string) (*Layer, error) {
	r, ok := m.readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "vector: %s", path)
	}
	return r.Read(path)
}

// polygonXY copies p into a new 2D polygon, dropping any Z or M ordinates.
func polygonXY(p *geom.Polygon) (*geom.Polygon, error) {
	rings := make([][]geom.Coord, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		lr := p.LinearRing(i)
		coords := make([]geom.Coord, 0, lr.NumCoords())
		for j := 0; j < lr.NumCoords(); j++ {
			c := lr.Coord(j)
			coords = append(coords, geom.Coord{c.X(), c.Y()})
		}
		rings = append(rings, coords)
	}
	return geom.NewPolygon(geom.XY).SetCoords(rings)
}

// toMultiPolygon normalises polygonal geometries to a 2D MultiPolygon.
func toMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	push := func(p *geom.Polygon) error {
		xy, err := polygonXY(p)
		if err != nil {
			return err
		}
		return mp.Push(xy)
	}

	switch t := g.(type) {
	case nil:
		return nil, nil
	case *geom.Polygon:
		if err := push(t); err != nil {
			return nil, eris.Wrap(err, "vector: polygon")
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if err := push(t.Polygon(i)); err != nil {
				return nil, eris.Wrapf(err, "vector: multipolygon part %d", i)
			}
		}
	default:
		return nil, eris.Wrapf(ErrUnsupportedGeometry, "vector: %T", g)
	}
	return mp, nil
}
