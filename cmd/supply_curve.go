package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gis-cli/internal/plot"
	"github.com/sells-group/gis-cli/internal/reclass"
	"github.com/sells-group/gis-cli/internal/supply"
)

var supplyCurveCmd = &cobra.Command{
	Use:   "supply-curve",
	Short: "Build a cumulative supply curve from two aligned rasters",
	Long: `Bins the --y raster (e.g. price), sums the --x raster (e.g. energy) per bin,
and accumulates the totals in ascending bin order.

Choose exactly one of --bins, --bin-file, or --bin. Restrict the analysis to a
zone with --mask and one or more --mask-value.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "supply-curve"))

		opts := supply.Options{Band: band(cmd), XLabel: cfg.Supply.XLabel, YLabel: cfg.Supply.YLabel}
		opts.XPath, _ = cmd.Flags().GetString("x")
		opts.YPath, _ = cmd.Flags().GetString("y")
		opts.MaskPath, _ = cmd.Flags().GetString("mask")
		opts.MaskValues, _ = cmd.Flags().GetFloat64Slice("mask-value")
		if l, _ := cmd.Flags().GetString("x-label"); l != "" {
			opts.XLabel = l
		}
		if l, _ := cmd.Flags().GetString("y-label"); l != "" {
			opts.YLabel = l
		}
		if err := binOptions(cmd, &opts); err != nil {
			return err
		}

		curve, err := supply.Build(newRasterReader(), opts)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		plotPath, _ := cmd.Flags().GetString("plot")
		if err := supply.Export(ctx, curve, supply.ExportOptions{
			TablePath: out,
			PlotPath:  plotPath,
			Plot:      plotOptions(cmd, "supply curve"),
		}); err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("save-bins"); path != "" {
			if curve.Classes.Kind() != reclass.KindInterval {
				return eris.New("supply-curve: --save-bins needs interval bins")
			}
			if err := reclass.WriteBinFile(ctx, path, curve.Classes.Bins()); err != nil {
				return err
			}
		}

		log.Info("supply curve complete", zap.String("out", out), zap.String("plot", plotPath))

		p := printer()
		var total float64
		if n := len(curve.Rows); n > 0 {
			total = curve.Rows[n-1].Quantity
		}
		p.Fprintf(cmd.OutOrStdout(), "supply curve: %d bins, cumulative %s %.2f\n", len(curve.Rows), curve.XLabel, total)
		if curve.Unclassified > 0 {
			p.Fprintf(cmd.OutOrStdout(), "warning: %d cells matched no bin\n", curve.Unclassified)
		}
		return nil
	},
}

func init() {
	f := supplyCurveCmd.Flags()
	f.String("x", "", "raster with the quantity to aggregate (required)")
	f.String("y", "", "raster with the value to bin on (required)")
	f.Int("band", 1, "band index, 1-based (default: from config)")
	f.String("x-label", "", "quantity column name (default: from config)")
	f.String("y-label", "", "label column name (default: from config)")
	addBinFlags(supplyCurveCmd)
	f.String("mask", "", "mask raster with the same shape as --y")
	f.Float64Slice("mask-value", nil, "mask values to keep")
	f.String("out", "", "table output (.csv, .xlsx, .db)")
	f.String("plot", "", "plot output (.png, .jpg, .gif)")
	f.String("save-bins", "", "write the resolved interval bins (.csv, .xlsx, .yaml)")
	addPlotFlags(supplyCurveCmd)
	_ = supplyCurveCmd.MarkFlagRequired("x")
	_ = supplyCurveCmd.MarkFlagRequired("y")
	rootCmd.AddCommand(supplyCurveCmd)
}

func addPlotFlags(cmd *cobra.Command) {
	cmd.Flags().Int("plot-width", 0, "plot width in pixels (default: from config)")
	cmd.Flags().Int("plot-height", 0, "plot height in pixels (default: from config)")
	cmd.Flags().String("plot-format", "", "plot encoding: png, jpeg, gif (default: from extension)")
}

func plotOptions(cmd *cobra.Command, title string) plot.Options {
	opts := plot.Options{
		Width:  cfg.Plot.Width,
		Height: cfg.Plot.Height,
		Format: plot.Format(cfg.Plot.Format),
		Title:  title,
	}
	if w, _ := cmd.Flags().GetInt("plot-width"); w > 0 {
		opts.Width = w
	}
	if h, _ := cmd.Flags().GetInt("plot-height"); h > 0 {
		opts.Height = h
	}
	if f, _ := cmd.Flags().GetString("plot-format"); f != "" {
		opts.Format = plot.Format(f)
	}
	return opts
}
