package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/gis-cli/internal/config"
	"github.com/sells-group/gis-cli/internal/raster"
	"github.com/sells-group/gis-cli/internal/raster/gdalraster"
	"github.com/sells-group/gis-cli/internal/vector"
)

var (
	cfg   *config.Config
	runID string
)

// Source readers. Tests swap these for in-memory fakes.
var (
	newRasterReader = func() raster.Reader {
		m := raster.NewMux(gdalraster.New())
		m.Handle(".asc", raster.ASCIIReader{})
		return m
	}
	newVectorReader = func() vector.Reader { return vector.Default() }
)

var rootCmd = &cobra.Command{
	Use:   "gis-cli",
	Short: "Raster reclassification, supply curves, and zonal statistics",
	Long: `Small GIS analysis utilities: reclassify raster bands into bins, build cumulative
supply curves from a quantity raster and a binned value raster, and compute
per-polygon zonal statistics. Rasters are read through GDAL, with a built-in
reader for ESRI ASCII grids (.asc).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		runID = uuid.NewString()
		zap.ReplaceGlobals(zap.L().With(zap.String("run_id", runID)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// printer formats console summaries with digit grouping.
func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

// band returns the --band flag when set, else the configured default.
func band(cmd *cobra.Command) int {
	if cmd.Flags().Changed("band") {
		b, _ := cmd.Flags().GetInt("band")
		return b
	}
	return cfg.Raster.Band
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
