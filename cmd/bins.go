package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/gis-cli/internal/reclass"
	"github.com/sells-group/gis-cli/internal/tabular"
)

var binsCmd = &cobra.Command{
	Use:   "bins",
	Short: "Generate equal-interval bins for a raster",
	Long: `Splits the valid value range of --raster into --n equal-width bins. The
result can be saved with --out and replayed later through --bin-file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("raster")
		n, _ := cmd.Flags().GetInt("n")

		g, err := newRasterReader().Read(path, band(cmd))
		if err != nil {
			return err
		}
		bins, err := reclass.EqualInterval(validValues(g), n)
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := reclass.WriteBinFile(cmd.Context(), out, bins); err != nil {
				return err
			}
			printer().Fprintf(cmd.OutOrStdout(), "%d bins written to %s\n", len(bins), out)
			return nil
		}
		return tabular.WriteCSV(cmd.OutOrStdout(), reclass.BinTable(bins))
	},
}

func init() {
	f := binsCmd.Flags()
	f.String("raster", "", "raster source (required)")
	f.Int("band", 1, "band index, 1-based (default: from config)")
	f.Int("n", 0, "number of bins (required)")
	f.String("out", "", "bin file output (.csv, .xlsx, .yaml); stdout when empty")
	_ = binsCmd.MarkFlagRequired("raster")
	_ = binsCmd.MarkFlagRequired("n")
	rootCmd.AddCommand(binsCmd)
}
