package zonal

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/gis-cli/internal/raster"
)

// pixelGrid maps between cell indices and georeferenced coordinates for a
// north-up (unrotated) geotransform.
type pixelGrid struct {
	x0, dx, y0, dy float64
	rows, cols     int
}

func newPixelGrid(g *raster.Grid) (pixelGrid, error) {
	gt := g.GeoTransform
	if gt[2] != 0 || gt[4] != 0 {
		return pixelGrid{}, eris.Wrapf(ErrRotatedRaster, "zonal: geotransform %v", gt)
	}
	if gt[1] == 0 || gt[5] == 0 {
		return pixelGrid{}, eris.Errorf("zonal: zero pixel size in geotransform %v", gt)
	}
	return pixelGrid{x0: gt[0], dx: gt[1], y0: gt[3], dy: gt[5], rows: g.Rows, cols: g.Cols}, nil
}

type rect struct{ minX, minY, maxX, maxY float64 }

func (p pixelGrid) cell(r, c int) rect {
	xa, xb := p.x0+float64(c)*p.dx, p.x0+float64(c+1)*p.dx
	ya, yb := p.y0+float64(r)*p.dy, p.y0+float64(r+1)*p.dy
	return rect{math.Min(xa, xb), math.Min(ya, yb), math.Max(xa, xb), math.Max(ya, yb)}
}

func (p pixelGrid) center(r, c int) geom.Coord {
	return geom.Coord{p.x0 + (float64(c)+0.5)*p.dx, p.y0 + (float64(r)+0.5)*p.dy}
}

// span converts a coordinate interval to an inclusive index range clamped
// to [0, n). Cells that only meet the interval at an end are included on
// both sides. ok is false when the interval misses the grid entirely.
func span(lo, hi, origin, size float64, n int) (i0, i1 int, ok bool) {
	a, b := (lo-origin)/size, (hi-origin)/size
	if a > b {
		a, b = b, a
	}
	i0, i1 = int(math.Ceil(a))-1, int(math.Floor(b))
	if i1 < 0 || i0 >= n {
		return 0, 0, false
	}
	return max(i0, 0), min(i1, n-1), true
}

// window returns the cell index ranges overlapping b.
func (p pixelGrid) window(b *geom.Bounds) (r0, r1, c0, c1 int, ok bool) {
	c0, c1, ok = span(b.Min(0), b.Max(0), p.x0, p.dx, p.cols)
	if !ok {
		return 0, 0, 0, 0, false
	}
	r0, r1, ok = span(b.Min(1), b.Max(1), p.y0, p.dy, p.rows)
	return r0, r1, c0, c1, ok
}

// cover calls fn with the row-major index of every cell selected by mp:
// cells whose centre is inside, or with allTouched any cell the polygon
// intersects. Cells inside holes are never selected.
func (p pixelGrid) cover(mp *geom.MultiPolygon, allTouched bool, fn func(idx int)) {
	if mp == nil || mp.NumPolygons() == 0 {
		return
	}
	r0, r1, c0, c1, ok := p.window(mp.Bounds())
	if !ok {
		return
	}
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if p.selected(mp, r, c, allTouched) {
				fn(r*p.cols + c)
			}
		}
	}
}

func (p pixelGrid) selected(mp *geom.MultiPolygon, r, c int, allTouched bool) bool {
	centre := p.center(r, c)
	for i := 0; i < mp.NumPolygons(); i++ {
		if contains(mp.Polygon(i), centre) {
			return true
		}
	}
	if !allTouched {
		return false
	}
	cell := p.cell(r, c)
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			if cell.crossedBy(poly.LinearRing(j).FlatCoords()) {
				return true
			}
		}
	}
	return false
}

// contains reports whether pt lies in the exterior ring of poly and
// outside all of its holes.
func contains(poly *geom.Polygon, pt geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(geom.XY, pt, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for j := 1; j < poly.NumLinearRings(); j++ {
		if xy.IsPointInRing(geom.XY, pt, poly.LinearRing(j).FlatCoords()) {
			return false
		}
	}
	return true
}

// crossedBy reports whether any segment of the flat XY ring touches the
// closed rectangle. A cell that only shares an edge or corner with the ring
// counts as touched; GDAL's all-touched rasterisation usually leaves such
// cells out, so pixel-aligned zones pick up one extra ring of cells here.
func (r rect) crossedBy(flat []float64) bool {
	for i := 0; i+3 < len(flat); i += 2 {
		if r.clips(flat[i], flat[i+1], flat[i+2], flat[i+3]) {
			return true
		}
	}
	return false
}

// clips is a Liang-Barsky segment/rectangle test.
func (r rect) clips(ax, ay, bx, by float64) bool {
	dx, dy := bx-ax, by-ay
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, ax - r.minX},
		{dx, r.maxX - ax},
		{-dy, ay - r.minY},
		{dy, r.maxY - ay},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return false
			}
			t1 = math.Min(t1, t)
		}
	}
	return true
}
