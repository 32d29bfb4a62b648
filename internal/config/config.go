package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Raster RasterConfig `yaml:"raster" mapstructure:"raster"`
	Supply SupplyConfig `yaml:"supply" mapstructure:"supply"`
	Zonal  ZonalConfig  `yaml:"zonal" mapstructure:"zonal"`
	Plot   PlotConfig   `yaml:"plot" mapstructure:"plot"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RasterConfig configures raster reads.
type RasterConfig struct {
	Band int `yaml:"band" mapstructure:"band"`
}

// SupplyConfig holds supply curve axis labels.
type SupplyConfig struct {
	XLabel string `yaml:"x_label" mapstructure:"x_label"`
	YLabel string `yaml:"y_label" mapstructure:"y_label"`
}

// ZonalConfig configures zonal statistics.
type ZonalConfig struct {
	Stats      []string `yaml:"stats" mapstructure:"stats"`
	AllTouched bool     `yaml:"all_touched" mapstructure:"all_touched"`
	Workers    int      `yaml:"workers" mapstructure:"workers"`
}

// PlotConfig configures rendered plots. An empty Format means "use the
// output file extension".
type PlotConfig struct {
	Width  int    `yaml:"width" mapstructure:"width"`
	Height int    `yaml:"height" mapstructure:"height"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("raster.band", 1)
	v.SetDefault("supply.x_label", "energy")
	v.SetDefault("supply.y_label", "price")
	v.SetDefault("zonal.stats", []string{"min", "max", "mean", "sum"})
	v.SetDefault("zonal.all_touched", false)
	v.SetDefault("zonal.workers", 0)
	v.SetDefault("plot.width", 800)
	v.SetDefault("plot.height", 600)
	v.SetDefault("plot.format", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks value ranges. All problems are reported together.
func (c *Config) Validate() error {
	var problems []string
	if c.Raster.Band < 1 {
		problems = append(problems, "raster.band must be >= 1")
	}
	if c.Zonal.Workers < 0 {
		problems = append(problems, "zonal.workers must be >= 0")
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		problems = append(problems, "plot.width and plot.height must be > 0")
	}
	switch c.Plot.Format {
	case "", "png", "jpeg", "gif":
	default:
		problems = append(problems, "plot.format must be one of png, jpeg, gif")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		problems = append(problems, "log.format must be json or console")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
