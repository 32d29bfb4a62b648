// Package raster reads single raster bands into dense in-memory grids.
package raster

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Sentinel errors returned by readers. Callers test with errors.Is.
var (
	ErrSourceNotFound = eris.New("raster source not found")
	ErrBandIndex      = eris.New("band index out of range")
)

// Grid is a dense row-major raster band.
type Grid struct {
	Rows, Cols int
	Data       []float64

	// NoData is only meaningful when HasNoData is true.
	NoData    float64
	HasNoData bool

	// GeoTransform follows the GDAL convention:
	// Xgeo = gt[0] + col*gt[1] + row*gt[2], Ygeo = gt[3] + col*gt[4] + row*gt[5].
	GeoTransform [6]float64
}

// Shape is a grid's (rows, cols) pair.
type Shape struct {
	Rows, Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

// NewGrid wraps data as a rows x cols grid with an identity pixel transform.
func NewGrid(rows, cols int, data []float64) *Grid {
	return &Grid{
		Rows:         rows,
		Cols:         cols,
		Data:         data,
		GeoTransform: [6]float64{0, 1, 0, 0, 0, 1},
	}
}

// Shape returns the grid dimensions.
func (g *Grid) Shape() Shape {
	return Shape{Rows: g.Rows, Cols: g.Cols}
}

// At returns the value at row r, column c.
func (g *Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// IsNoData reports whether v is the grid's no-data sentinel or NaN.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Data = append([]float64(nil), g.Data...)
	return &out
}

// MinMax returns the minimum and maximum over valid (non no-data, non-NaN)
// cells. ok is false when the grid has no valid cell.
func (g *Grid) MinMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if g.IsNoData(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// Reader loads one band of a raster source. Band indices start at 1.
type Reader interface {
	Read(path string, band int) (*Grid, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string, band int) (*Grid, error)

// Read calls f(path, band).
func (f ReaderFunc) Read(path string, band int) (*Grid, error) {
	return f(path, band)
}

// Mux dispatches reads by lower-case file extension. Paths whose extension
// has no registered reader go to Fallback.
type Mux struct {
	readers  map[string]Reader
	Fallback Reader
}

// NewMux returns a Mux with the given fallback reader.
func NewMux(fallback Reader) *Mux {
	return &Mux{readers: make(map[string]Reader), Fallback: fallback}
}

// Handle registers r for ext (with or without the leading dot).
func (m *Mux) Handle(ext string, r Reader) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	m.readers[ext] = r
}

// Read implements Reader.
func (m *Mux) Read(path string, band int) (*Grid, error) {
	if r, ok := m.readers[strings.ToLower(filepath.Ext(path))]; ok {
		return r.Read(path, band)
	}
	if m.Fallback == nil {
		return nil, eris.Wrapf(ErrSourceNotFound, "raster: no reader for %s", path)
	}
	return m.Fallback.Read(path, band)
}
