// Package reclass builds value bins and remaps raster values into them.
package reclass

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gis-cli/internal/raster"
)

// Sentinel errors. Callers test with errors.Is.
var (
	ErrDegenerateRange = eris.New("degenerate value range")
	ErrInvalidBinCount = eris.New("bin count must be at least 1")
)

// Bin maps values in [Start, To) to Value. The last bin of an ordered list
// is closed: [Start, To].
type Bin struct {
	Start float64 `yaml:"start_value"`
	To    float64 `yaml:"to_value"`
	Value float64 `yaml:"new_value"`
}

// Remap substitutes every value equal to Old with New.
type Remap struct {
	Old float64
	New float64
}

// Kind selects how a Table's rules are matched.
type Kind int

const (
	// KindExact matches values by equality.
	KindExact Kind = iota + 1
	// KindInterval matches values by range.
	KindInterval
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindInterval:
		return "interval"
	default:
		return "none"
	}
}

// Table is an ordered list of reclassification rules of a single Kind.
// The zero Table is empty and reclassifies nothing.
type Table struct {
	kind   Kind
	remaps []Remap
	bins   []Bin
}

// Exact returns a table of exact-value remaps.
func Exact(pairs ...Remap) Table {
	return Table{kind: KindExact, remaps: append([]Remap(nil), pairs...)}
}

// Intervals returns a table of interval bins.
func Intervals(bins ...Bin) Table {
	return Table{kind: KindInterval, bins: append([]Bin(nil), bins...)}
}

// Kind returns the table's rule kind, or 0 for the zero Table.
func (t Table) Kind() Kind { return t.kind }

// Len returns the number of rules.
func (t Table) Len() int {
	if t.kind == KindExact {
		return len(t.remaps)
	}
	return len(t.bins)
}

// IsZero reports whether the table has no rules.
func (t Table) IsZero() bool { return t.Len() == 0 }

// Bins returns a copy of the interval bins (nil for exact tables).
func (t Table) Bins() []Bin { return append([]Bin(nil), t.bins...) }

// Remaps returns a copy of the exact remaps (nil for interval tables).
func (t Table) Remaps() []Remap { return append([]Remap(nil), t.remaps...) }

// Reclassify applies the rules of t to a copy of values, in order. Each rule
// tests the current value of a cell, so a later rule overwrites cells already
// reassigned by an earlier one.
func Reclassify(values []float64, t Table) []float64 {
	out := append([]float64(nil), values...)

	switch t.kind {
	case KindExact:
		for _, p := range t.remaps {
			for i, v := range out {
				if v == p.Old {
					out[i] = p.New
				}
			}
		}
	case KindInterval:
		last := len(t.bins) - 1
		for idx, b := range t.bins {
			closed := idx == last
			for i, v := range out {
				if b.contains(v, closed) {
					out[i] = b.Value
				}
			}
		}
	}
	return out
}

// ReclassifyGrid returns a copy of g with Reclassify applied to its cells.
func ReclassifyGrid(g *raster.Grid, t Table) *raster.Grid {
	out := *g
	out.Data = Reclassify(g.Data, t)
	return &out
}

func (b Bin) contains(v float64, closed bool) bool {
	if v < b.Start {
		return false
	}
	if closed {
		return v <= b.To
	}
	return v < b.To
}

// EqualInterval splits the range of the non-NaN values into n bins of equal
// width labelled 0..n-1. A constant (or all-NaN) input is rejected with
// ErrDegenerateRange rather than producing zero-width bins.
func EqualInterval(values []float64, n int) ([]Bin, error) {
	if n < 1 {
		return nil, eris.Wrapf(ErrInvalidBinCount, "reclass: n_bins=%d", n)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return nil, eris.Wrap(ErrDegenerateRange, "reclass: no non-missing values")
	}
	if lo == hi {
		return nil, eris.Wrapf(ErrDegenerateRange, "reclass: min %v equals max %v", lo, hi)
	}

	w := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{
			Start: lo + float64(i)*w,
			To:    lo + float64(i+1)*w,
			Value: float64(i),
		}
	}
	// lo + n*w can round below hi; pin the closed edge so the maximum is binned.
	bins[n-1].To = hi
	return bins, nil
}
