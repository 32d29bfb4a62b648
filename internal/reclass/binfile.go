package reclass

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gis-cli/internal/tabular"
)

// Bin table errors.
var (
	ErrBinTableColumn = eris.New("bin table column missing")
	ErrBinTableValue  = eris.New("bin table value not numeric")
)

// BinColumns is the header of a bin-definition table.
var BinColumns = []string{"start_value", "to_value", "new_value"}

// ReadBinFile reads interval bins from a .csv, .txt, .xlsx, .yaml, or .yml
// file. Rows keep their file order.
func ReadBinFile(path string) ([]Bin, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readBinYAML(path)
	}

	header, rows, err := tabular.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reclass: read bin file %s", path)
	}
	bins, err := ParseBinRows(header, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "reclass: bin file %s", path)
	}
	return bins, nil
}

// ParseBinRows converts tabular rows into bins. Header names are matched
// case-insensitively and may appear in any order.
func ParseBinRows(header []string, rows [][]string) ([]Bin, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := make([]int, len(BinColumns))
	for i, name := range BinColumns {
		j, ok := idx[name]
		if !ok {
			return nil, eris.Wrapf(ErrBinTableColumn, "column %q not in header [%s]", name, strings.Join(header, ", "))
		}
		cols[i] = j
	}

	bins := make([]Bin, 0, len(rows))
	for r, row := range rows {
		var vals [3]float64
		for i, j := range cols {
			if j >= len(row) || strings.TrimSpace(row[j]) == "" {
				return nil, eris.Wrapf(ErrBinTableValue, "row %d column %q is empty", r+1, BinColumns[i])
			}
			v, err := cast.ToFloat64E(strings.TrimSpace(row[j]))
			if err != nil {
				return nil, eris.Wrapf(ErrBinTableValue, "row %d column %q value %q", r+1, BinColumns[i], row[j])
			}
			vals[i] = v
		}
		bins = append(bins, Bin{Start: vals[0], To: vals[1], Value: vals[2]})
	}
	return bins, nil
}

func readBinYAML(path string) ([]Bin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reclass: read bin file %s", path)
	}
	var entries []map[string]any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(ErrBinTableValue, "reclass: bin file %s: %v", path, err)
	}

	// Each entry becomes a row in BinColumns order; a missing key is a
	// missing column, as in a headed table.
	rows := make([][]string, len(entries))
	for r, entry := range entries {
		byName := make(map[string]any, len(entry))
		for k, v := range entry {
			byName[strings.ToLower(strings.TrimSpace(k))] = v
		}
		row := make([]string, len(BinColumns))
		for i, name := range BinColumns {
			v, ok := byName[name]
			if !ok {
				return nil, eris.Wrapf(ErrBinTableColumn, "reclass: bin file %s: entry %d has no %q", path, r+1, name)
			}
			str, err := cast.ToStringE(v)
			if err != nil {
				return nil, eris.Wrapf(ErrBinTableValue, "reclass: bin file %s: entry %d %q value %v", path, r+1, name, v)
			}
			row[i] = str
		}
		rows[r] = row
	}

	bins, err := ParseBinRows(BinColumns, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "reclass: bin file %s", path)
	}
	return bins, nil
}

// BinTable renders bins as a table with BinColumns.
func BinTable(bins []Bin) *tabular.Table {
	t := &tabular.Table{Name: "bins", Columns: append([]string(nil), BinColumns...)}
	for _, b := range bins {
		t.Append(b.Start, b.To, b.Value)
	}
	return t
}

// WriteBinFile persists bins in a format ReadBinFile accepts back.
func WriteBinFile(ctx context.Context, path string, bins []Bin) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(bins)
		if err != nil {
			return eris.Wrap(err, "reclass: marshal bins")
		}
		return eris.Wrapf(os.WriteFile(path, data, 0o644), "reclass: write %s", path)
	}
	return tabular.WriteFile(ctx, path, BinTable(bins))
}
