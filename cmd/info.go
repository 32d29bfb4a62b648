package main

import (
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe one raster band",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("raster")
		b := band(cmd)

		g, err := newRasterReader().Read(path, b)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		p := printer()
		p.Fprintf(w, "raster:    %s (band %d)\n", path, b)
		p.Fprintf(w, "shape:     %s\n", g.Shape())
		if g.HasNoData {
			p.Fprintf(w, "nodata:    %v\n", g.NoData)
		} else {
			p.Fprintf(w, "nodata:    none\n")
		}

		var valid int
		for _, v := range g.Data {
			if !g.IsNoData(v) {
				valid++
			}
		}
		p.Fprintf(w, "valid:     %d of %d cells\n", valid, len(g.Data))
		if lo, hi, ok := g.MinMax(); ok {
			p.Fprintf(w, "min / max: %v / %v\n", lo, hi)
		}
		p.Fprintf(w, "transform: %v\n", g.GeoTransform)
		return nil
	},
}

func init() {
	infoCmd.Flags().String("raster", "", "raster source (required)")
	infoCmd.Flags().Int("band", 1, "band index, 1-based (default: from config)")
	_ = infoCmd.MarkFlagRequired("raster")
	rootCmd.AddCommand(infoCmd)
}
