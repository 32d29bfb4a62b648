// Package tabular writes result tables as CSV, XLSX, or SQLite and reads
// small tabular inputs from CSV or XLSX.
package tabular

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedFormat is returned for file extensions with no reader or writer.
var ErrUnsupportedFormat = eris.New("unsupported table format")

// Table is an ordered set of named columns. Cells hold string, float64, int,
// or nil (missing).
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Append adds a row. The row length must match Columns.
func (t *Table) Append(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Format renders a cell as locale-independent text. nil and NaN render empty.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return Format(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// WriteFile writes t to path, choosing the format from the file extension:
// .csv/.txt, .xlsx, or .db/.sqlite/.sqlite3.
func WriteFile(ctx context.Context, path string, t *Table) error {
	switch ext(path) {
	case ".csv", ".txt":
		return WriteCSVFile(path, t)
	case ".xlsx":
		return WriteXLSX(path, t)
	case ".db", ".sqlite", ".sqlite3":
		return WriteSQLite(ctx, path, t)
	default:
		return eris.Wrapf(ErrUnsupportedFormat, "tabular: write %s", path)
	}
}

// ReadFile reads a header row and data rows from a .csv/.txt or .xlsx file.
func ReadFile(path string) (header []string, rows [][]string, err error) {
	switch ext(path) {
	case ".csv", ".txt":
		all, err := ReadCSVFile(path, CSVOptions{TrimSpace: true})
		if err != nil {
			return nil, nil, err
		}
		return split(all)
	case ".xlsx":
		all, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, nil, err
		}
		return split(all)
	default:
		return nil, nil, eris.Wrapf(ErrUnsupportedFormat, "tabular: read %s", path)
	}
}

func split(all [][]string) ([]string, [][]string, error) {
	if len(all) == 0 {
		return nil, nil, eris.New("tabular: empty table")
	}
	return all[0], all[1:], nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
