package main

import (
	"math"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gis-cli/internal/raster"
	"github.com/sells-group/gis-cli/internal/reclass"
	"github.com/sells-group/gis-cli/internal/supply"
	"github.com/sells-group/gis-cli/internal/tabular"
)

var reclassCmd = &cobra.Command{
	Use:   "reclass",
	Short: "Reclassify a raster and count cells per class",
	Long: `Applies --bins, --bin-file, or --bin rules to --raster and reports how many
valid cells ended up in each class. No-data cells are not counted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("raster")
		g, err := newRasterReader().Read(path, band(cmd))
		if err != nil {
			return err
		}

		var opts supply.Options
		if err := binOptions(cmd, &opts); err != nil {
			return err
		}
		table, err := supply.ResolveBins(opts, validValues(g))
		if err != nil {
			return err
		}

		counts := classCounts(g, reclass.ReclassifyGrid(g, table))
		zap.L().Info("reclass complete",
			zap.String("command", "reclass"),
			zap.String("raster", path),
			zap.String("rules", table.Kind().String()),
			zap.Int("classes", len(counts.Rows)),
		)

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			return tabular.WriteFile(cmd.Context(), out, counts)
		}
		return tabular.WriteCSV(cmd.OutOrStdout(), counts)
	},
}

func init() {
	f := reclassCmd.Flags()
	f.String("raster", "", "raster source (required)")
	f.Int("band", 1, "band index, 1-based (default: from config)")
	f.String("out", "", "table output (.csv, .xlsx, .db); stdout when empty")
	addBinFlags(reclassCmd)
	_ = reclassCmd.MarkFlagRequired("raster")
	rootCmd.AddCommand(reclassCmd)
}

// validValues copies g's data with no-data cells set to NaN.
func validValues(g *raster.Grid) []float64 {
	out := slices.Clone(g.Data)
	for i, v := range out {
		if g.IsNoData(v) {
			out[i] = math.NaN()
		}
	}
	return out
}

// classCounts tallies the reclassified values of the cells that were valid in src.
func classCounts(src, classed *raster.Grid) *tabular.Table {
	counts := make(map[float64]int)
	for i, v := range classed.Data {
		if src.IsNoData(src.Data[i]) {
			continue
		}
		counts[v]++
	}

	classes := make([]float64, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	t := &tabular.Table{Name: "class_counts", Columns: []string{"class", "cells"}}
	for _, c := range classes {
		t.Append(c, counts[c])
	}
	return t
}
