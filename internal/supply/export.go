package supply

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gis-cli/internal/plot"
	"github.com/sells-group/gis-cli/internal/tabular"
)

// ExportOptions names the artifacts Export writes. Empty paths are skipped.
type ExportOptions struct {
	TablePath string
	PlotPath  string
	Plot      plot.Options
}

// Export writes the curve table and renders the curve plot with quantity on
// the x axis and the bin label on the y axis.
func Export(ctx context.Context, c *Curve, opts ExportOptions) error {
	if opts.TablePath != "" {
		if err := tabular.WriteFile(ctx, opts.TablePath, c.Table()); err != nil {
			return eris.Wrapf(err, "supply: write table %s", opts.TablePath)
		}
		zap.L().Debug("supply: wrote table", zap.String("path", opts.TablePath))
	}

	if opts.PlotPath == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "supply: export cancelled")
	}

	po := opts.Plot
	if po.XLabel == "" {
		po.XLabel = c.XLabel
	}
	if po.YLabel == "" {
		po.YLabel = c.YLabel
	}
	labels := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		labels[i] = r.Label
	}
	if err := plot.SaveLine(opts.PlotPath, plot.Series{X: c.Quantities(), Y: labels}, po); err != nil {
		return eris.Wrapf(err, "supply: render plot %s", opts.PlotPath)
	}
	zap.L().Debug("supply: wrote plot", zap.String("path", opts.PlotPath))
	return nil
}
