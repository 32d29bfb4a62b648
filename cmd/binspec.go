package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/sells-group/gis-cli/internal/reclass"
	"github.com/sells-group/gis-cli/internal/supply"
)

func addBinFlags(cmd *cobra.Command) {
	cmd.Flags().Int("bins", 0, "number of equal-interval bins")
	cmd.Flags().String("bin-file", "", "bin table (.csv, .xlsx, .yaml) with start_value, to_value, new_value columns")
	cmd.Flags().StringArray("bin", nil, `explicit rule, "start:to:new" (interval) or "old:new" (exact); repeatable, applied in order`)
}

// binOptions copies the bin flags into supply options.
func binOptions(cmd *cobra.Command, opts *supply.Options) error {
	opts.NumBins, _ = cmd.Flags().GetInt("bins")
	opts.BinFile, _ = cmd.Flags().GetString("bin-file")
	specs, _ := cmd.Flags().GetStringArray("bin")
	t, err := parseRules(specs)
	if err != nil {
		return err
	}
	opts.Bins = t
	return nil
}

// parseRules parses --bin values. Every rule must have the same arity.
func parseRules(specs []string) (reclass.Table, error) {
	if len(specs) == 0 {
		return reclass.Table{}, nil
	}

	var remaps []reclass.Remap
	var bins []reclass.Bin
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		vals := make([]float64, len(parts))
		for i, p := range parts {
			v, err := cast.ToFloat64E(strings.TrimSpace(p))
			if err != nil {
				return reclass.Table{}, eris.Wrapf(err, "bin rule %q", spec)
			}
			vals[i] = v
		}
		switch len(vals) {
		case 2:
			remaps = append(remaps, reclass.Remap{Old: vals[0], New: vals[1]})
		case 3:
			bins = append(bins, reclass.Bin{Start: vals[0], To: vals[1], Value: vals[2]})
		default:
			return reclass.Table{}, eris.Errorf("bin rule %q: want old:new or start:to:new", spec)
		}
	}
	if len(remaps) > 0 && len(bins) > 0 {
		return reclass.Table{}, eris.New("bin rules mix old:new and start:to:new forms")
	}
	if len(bins) > 0 {
		return reclass.Intervals(bins...), nil
	}
	return reclass.Exact(remaps...), nil
}
