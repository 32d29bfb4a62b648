// Package plot renders static line charts to raster image files.
package plot

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Errors returned by the renderer.
var (
	ErrUnsupportedFormat = eris.New("unsupported plot format")
	ErrEmptySeries       = eris.New("no finite points to plot")
)

// Format is an image encoding.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
)

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".gif":
		return GIF, nil
	}
	return "", eris.Wrapf(ErrUnsupportedFormat, "plot: %s", path)
}

// Options configures a chart. Zero sizes fall back to 800x600.
type Options struct {
	Width, Height int
	// Format overrides the encoding chosen from the file extension.
	Format Format
	Title  string
	XLabel string
	YLabel string
	Color  color.Color
}

// Series is a polyline drawn in point order.
type Series struct {
	X, Y []float64
}

const (
	defaultWidth  = 800
	defaultHeight = 600
	marginLeft    = 80
	marginRight   = 24
	marginTop     = 40
	marginBottom  = 56
	tickCount     = 5
	tickLen       = 5
	lineWidth     = 2
	axisWidth     = 1
)

var (
	axisColor = color.RGBA{0x33, 0x33, 0x33, 0xff}
	gridColor = color.RGBA{0xe5, 0xe5, 0xe5, 0xff}
	lineColor = color.RGBA{0x1f, 0x77, 0xb4, 0xff}
)

// SaveLine renders s to path. The encoding is opts.Format when set, else the
// file extension.
func SaveLine(path string, s Series, opts Options) (err error) {
	if opts.Format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return err
		}
		opts.Format = f
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "plot: create %s", path)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "plot: close %s", path)
		}
	}()
	return Line(out, s, opts)
}

// Line renders s as a line chart and encodes it to w.
func Line(w io.Writer, s Series, opts Options) error {
	img, err := Render(s, opts)
	if err != nil {
		return err
	}
	switch opts.Format {
	case PNG, "":
		return eris.Wrap(png.Encode(w, img), "plot: encode png")
	case JPEG:
		return eris.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: 90}), "plot: encode jpeg")
	case GIF:
		return eris.Wrap(gif.Encode(w, img, nil), "plot: encode gif")
	default:
		return eris.Wrapf(ErrUnsupportedFormat, "plot: format %q", opts.Format)
	}
}

// Render draws s onto a new RGBA image.
func Render(s Series, opts Options) (*image.RGBA, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.Color == nil {
		opts.Color = lineColor
	}

	pts := finitePoints(s)
	if len(pts) == 0 {
		return nil, ErrEmptySeries
	}
	xr, yr := extent(pts)

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	c := canvas{
		img:  img,
		r:    vector.NewRasterizer(opts.Width, opts.Height),
		x0:   marginLeft,
		y0:   float64(opts.Height - marginBottom),
		x1:   float64(opts.Width - marginRight),
		y1:   marginTop,
		xr:   xr,
		yr:   yr,
		face: basicfont.Face7x13,
	}

	c.grid()
	c.polyline(pts, opts.Color)
	c.axes()
	c.labels(opts)
	return img, nil
}

type point struct{ x, y float64 }

type span struct{ lo, hi float64 }

func finitePoints(s Series) []point {
	n := min(len(s.X), len(s.Y))
	pts := make([]point, 0, n)
	for i := range n {
		x, y := s.X[i], s.Y[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, point{x, y})
	}
	return pts
}

func extent(pts []point) (xr, yr span) {
	xr = span{math.Inf(1), math.Inf(-1)}
	yr = xr
	for _, p := range pts {
		xr.lo, xr.hi = math.Min(xr.lo, p.x), math.Max(xr.hi, p.x)
		yr.lo, yr.hi = math.Min(yr.lo, p.y), math.Max(yr.hi, p.y)
	}
	return pad(xr), pad(yr)
}

// pad widens a zero-width span so it can be mapped to pixels.
func pad(s span) span {
	if s.hi > s.lo {
		return s
	}
	d := math.Abs(s.lo) * 0.05
	if d == 0 {
		d = 0.5
	}
	return span{s.lo - d, s.hi + d}
}

type canvas struct {
	img            *image.RGBA
	r              *vector.Rasterizer
	x0, y0, x1, y1 float64
	xr, yr         span
	face           font.Face
}

func (c *canvas) px(x float64) float64 {
	return c.x0 + (x-c.xr.lo)/(c.xr.hi-c.xr.lo)*(c.x1-c.x0)
}

func (c *canvas) py(y float64) float64 {
	return c.y0 - (y-c.yr.lo)/(c.yr.hi-c.yr.lo)*(c.y0-c.y1)
}

// segment adds a w-pixel-wide quad from a to b to the rasterizer path.
func (c *canvas) segment(ax, ay, bx, by, w float64) {
	dx, dy := bx-ax, by-ay
	l := math.Hypot(dx, dy)
	if l == 0 {
		dx, dy, l = 1, 0, 1
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	c.r.MoveTo(float32(ax+nx), float32(ay+ny))
	c.r.LineTo(float32(bx+nx), float32(by+ny))
	c.r.LineTo(float32(bx-nx), float32(by-ny))
	c.r.LineTo(float32(ax-nx), float32(ay-ny))
	c.r.ClosePath()
}

func (c *canvas) flush(col color.Color) {
	b := c.img.Bounds()
	c.r.Draw(c.img, b, image.NewUniform(col), image.Point{})
	c.r.Reset(b.Dx(), b.Dy())
}

func (c *canvas) grid() {
	for i := 0; i <= tickCount; i++ {
		f := float64(i) / tickCount
		x := c.x0 + f*(c.x1-c.x0)
		y := c.y0 - f*(c.y0-c.y1)
		c.segment(x, c.y0, x, c.y1, axisWidth)
		c.segment(c.x0, y, c.x1, y, axisWidth)
	}
	c.flush(gridColor)
}

func (c *canvas) polyline(pts []point, col color.Color) {
	if len(pts) == 1 {
		x, y := c.px(pts[0].x), c.py(pts[0].y)
		c.segment(x-lineWidth, y, x+lineWidth, y, 2*lineWidth)
	}
	for i := 1; i < len(pts); i++ {
		c.segment(c.px(pts[i-1].x), c.py(pts[i-1].y), c.px(pts[i].x), c.py(pts[i].y), lineWidth)
	}
	c.flush(col)
}

func (c *canvas) axes() {
	c.segment(c.x0, c.y0, c.x1, c.y0, axisWidth)
	c.segment(c.x0, c.y0, c.x0, c.y1, axisWidth)
	for i := 0; i <= tickCount; i++ {
		f := float64(i) / tickCount
		x := c.x0 + f*(c.x1-c.x0)
		y := c.y0 - f*(c.y0-c.y1)
		c.segment(x, c.y0, x, c.y0+tickLen, axisWidth)
		c.segment(c.x0-tickLen, y, c.x0, y, axisWidth)
	}
	c.flush(axisColor)
}

func (c *canvas) labels(opts Options) {
	for i := 0; i <= tickCount; i++ {
		f := float64(i) / tickCount
		xv := c.xr.lo + f*(c.xr.hi-c.xr.lo)
		yv := c.yr.lo + f*(c.yr.hi-c.yr.lo)

		xs := tickLabel(xv)
		c.text(xs, c.x0+f*(c.x1-c.x0)-float64(c.width(xs))/2, c.y0+tickLen+14)

		ys := tickLabel(yv)
		c.text(ys, c.x0-tickLen-4-float64(c.width(ys)), c.y0-f*(c.y0-c.y1)+4)
	}

	if opts.XLabel != "" {
		c.text(opts.XLabel, (c.x0+c.x1)/2-float64(c.width(opts.XLabel))/2, c.y0+tickLen+34)
	}
	if opts.YLabel != "" {
		c.text(opts.YLabel, 8, c.y1-12)
	}
	if opts.Title != "" {
		c.text(opts.Title, (c.x0+c.x1)/2-float64(c.width(opts.Title))/2, 18)
	}
}

func (c *canvas) width(s string) int {
	return font.MeasureString(c.face, s).Ceil()
}

func (c *canvas) text(s string, x, y float64) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(axisColor),
		Face: c.face,
		Dot:  fixed.P(int(math.Round(x)), int(math.Round(y))),
	}
	d.DrawString(s)
}

func tickLabel(v float64) string {
	if math.Abs(v) < 1e-12 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
