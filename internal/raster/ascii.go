package raster

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ASCIIReader reads ESRI ASCII grids (.asc). The format holds a single band.
type ASCIIReader struct{}

// Read implements Reader.
func (ASCIIReader) Read(path string, band int) (*Grid, error) {
	if band != 1 {
		return nil, eris.Wrapf(ErrBandIndex, "raster: band %d requested from %s (band count 1)", band, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, eris.Wrapf(ErrSourceNotFound, "raster: open %s: %v", path, err)
		}
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g, err := ParseASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: parse %s", path)
	}
	return g, nil
}

// ParseASCII parses an ESRI ASCII grid.
func ParseASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64)
	var first string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !isASCIIHeaderKey(key) {
			first = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("ascii grid: missing value for header %q", tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "ascii grid: header %q", tok)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "ascii grid: scan header")
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("ascii grid: missing header %q", k)
		}
	}
	cols, rows := int(header["ncols"]), int(header["nrows"])
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("ascii grid: invalid dimensions %dx%d", rows, cols)
	}
	cs := header["cellsize"]

	xll, okX := header["xllcorner"]
	if !okX {
		xll = header["xllcenter"] - cs/2
	}
	yll, okY := header["yllcorner"]
	if !okY {
		yll = header["yllcenter"] - cs/2
	}

	g := &Grid{
		Rows:         rows,
		Cols:         cols,
		Data:         make([]float64, 0, rows*cols),
		GeoTransform: [6]float64{xll, cs, 0, yll + float64(rows)*cs, 0, -cs},
	}
	if nd, ok := header["nodata_value"]; ok {
		g.NoData, g.HasNoData = nd, true
	}

	parse := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(err, "ascii grid: cell %d", len(g.Data))
		}
		g.Data = append(g.Data, v)
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "ascii grid: scan cells")
	}
	if len(g.Data) != rows*cols {
		return nil, eris.Errorf("ascii grid: expected %d cells, found %d", rows*cols, len(g.Data))
	}
	return g, nil
}

func isASCIIHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}
