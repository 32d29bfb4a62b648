package zonal

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Stat names one zonal statistic.
type Stat string

// Statistic vocabulary. Percentiles are written percentile_<q>, 0 <= q <= 100.
const (
	Min      Stat = "min"
	Max      Stat = "max"
	Mean     Stat = "mean"
	Count    Stat = "count"
	Sum      Stat = "sum"
	Std      Stat = "std"
	Median   Stat = "median"
	Majority Stat = "majority"
	Minority Stat = "minority"
	Unique   Stat = "unique"
	Range    Stat = "range"
	NoData   Stat = "nodata"

	percentilePrefix = "percentile_"
)

// DefaultStats is used when no statistics are requested.
var DefaultStats = []Stat{Min, Max, Mean, Sum}

var vocabulary = map[Stat]bool{
	Min: true, Max: true, Mean: true, Count: true, Sum: true, Std: true,
	Median: true, Majority: true, Minority: true, Unique: true, Range: true, NoData: true,
}

// Percentile returns q for a percentile_<q> statistic.
func (s Stat) Percentile() (float64, bool) {
	rest, ok := strings.CutPrefix(string(s), percentilePrefix)
	if !ok {
		return 0, false
	}
	q, err := strconv.ParseFloat(rest, 64)
	if err != nil || q < 0 || q > 100 {
		return 0, false
	}
	return q, true
}

// integral reports whether the statistic is a cell count.
func (s Stat) integral() bool {
	return s == Count || s == Unique || s == NoData
}

// ParseStats normalises statistic names. A bare "percentile" means
// percentile_50. Duplicates are dropped, keeping the first occurrence.
func ParseStats(names []string) ([]Stat, error) {
	out := make([]Stat, 0, len(names))
	seen := make(map[Stat]bool, len(names))
	for _, name := range names {
		s := Stat(strings.ToLower(strings.TrimSpace(name)))
		if s == "" {
			continue
		}
		if s == "percentile" {
			s = percentilePrefix + "50"
		}
		if _, ok := s.Percentile(); !ok && !vocabulary[s] {
			return nil, eris.Wrapf(ErrUnknownStat, "zonal: %q", name)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return slices.Clone(DefaultStats), nil
	}
	return out, nil
}

// StatValue is one computed statistic. OK is false when the zone had no
// valid cell to compute it from.
type StatValue struct {
	Stat  Stat
	Value float64
	OK    bool
}

// summary holds the valid cell values of one zone plus its no-data count.
type summary struct {
	values []float64
	nodata int
	sorted []float64
}

func (s *summary) sortedValues() []float64 {
	if s.sorted == nil {
		s.sorted = slices.Clone(s.values)
		slices.Sort(s.sorted)
	}
	return s.sorted
}

func (s *summary) compute(stats []Stat) []StatValue {
	out := make([]StatValue, len(stats))
	for i, st := range stats {
		v, ok := s.stat(st)
		out[i] = StatValue{Stat: st, Value: v, OK: ok}
	}
	return out
}

func (s *summary) stat(st Stat) (float64, bool) {
	switch st {
	case Count:
		return float64(len(s.values)), true
	case NoData:
		return float64(s.nodata), true
	}
	if len(s.values) == 0 {
		return 0, false
	}

	sorted := s.sortedValues()
	switch st {
	case Min:
		return sorted[0], true
	case Max:
		return sorted[len(sorted)-1], true
	case Range:
		return sorted[len(sorted)-1] - sorted[0], true
	case Sum:
		return sum(s.values), true
	case Mean:
		return sum(s.values) / float64(len(s.values)), true
	case Std:
		mean := sum(s.values) / float64(len(s.values))
		var ss float64
		for _, v := range s.values {
			ss += (v - mean) * (v - mean)
		}
		return math.Sqrt(ss / float64(len(s.values))), true
	case Median:
		return percentile(sorted, 50), true
	case Majority:
		return mode(sorted, func(n, best int) bool { return n > best }), true
	case Minority:
		return mode(sorted, func(n, best int) bool { return n < best }), true
	case Unique:
		return float64(len(slices.Compact(slices.Clone(sorted)))), true
	}
	if q, ok := st.Percentile(); ok {
		return percentile(sorted, q), true
	}
	return 0, false
}

func sum(values []float64) float64 {
	var t float64
	for _, v := range values {
		t += v
	}
	return t
}

// percentile interpolates linearly between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// mode scans runs of equal values in ascending order and keeps the first
// run for which better(runLength, bestLength) holds, so ties resolve to the
// smaller value.
func mode(sorted []float64, better func(n, best int) bool) float64 {
	best, bestN := sorted[0], -1
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if n := j - i; bestN < 0 || better(n, bestN) {
			best, bestN = sorted[i], n
		}
		i = j
	}
	return best
}
