// Package config loads the map presentation settings and sets up logging.
package config

import (
	"strings"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the map presentation configuration.
type Config struct {
	Style    StyleConfig    `yaml:"style" mapstructure:"style"`
	Format   FormatConfig   `yaml:"format" mapstructure:"format"`
	Fields   FieldsConfig   `yaml:"fields" mapstructure:"fields"`
	Viewport ViewportConfig `yaml:"viewport" mapstructure:"viewport"`
	Layers   []BaseLayer    `yaml:"layers" mapstructure:"layers"`
	Load     LoadConfig     `yaml:"load" mapstructure:"load"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StyleConfig configures region styling.
type StyleConfig struct {
	Palette        []string `yaml:"palette" mapstructure:"palette"`
	DefaultOpacity float64  `yaml:"default_opacity" mapstructure:"default_opacity"`
	// Seed makes fill colours reproducible. Zero keeps them random per render.
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// FormatConfig configures locale-aware number display.
type FormatConfig struct {
	Locale   string `yaml:"locale" mapstructure:"locale"`
	AreaUnit string `yaml:"area_unit" mapstructure:"area_unit"`
}

// FieldsConfig names the feature property keys.
type FieldsConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	District string `yaml:"district" mapstructure:"district"`
	Regency  string `yaml:"regency" mapstructure:"regency"`
	Area     string `yaml:"area" mapstructure:"area"`
	AreaAlt  string `yaml:"area_alt" mapstructure:"area_alt"`
}

// ViewportConfig holds the initial map view.
type ViewportConfig struct {
	Center  [2]float64 `yaml:"center" mapstructure:"center"`
	Zoom    int        `yaml:"zoom" mapstructure:"zoom"`
	MinZoom int        `yaml:"min_zoom" mapstructure:"min_zoom"`
	// MaxBounds is [south, west, north, east].
	MaxBounds [4]float64 `yaml:"max_bounds" mapstructure:"max_bounds"`
}

// BaseLayer is an externally hosted tile service offered in the layer control.
type BaseLayer struct {
	Name        string   `yaml:"name" mapstructure:"name" json:"name"`
	URL         string   `yaml:"url" mapstructure:"url" json:"url"`
	Subdomains  []string `yaml:"subdomains" mapstructure:"subdomains" json:"subdomains"`
	MaxZoom     int      `yaml:"max_zoom" mapstructure:"max_zoom" json:"maxZoom"`
	Attribution string   `yaml:"attribution" mapstructure:"attribution" json:"attribution"`
	Default     bool     `yaml:"default" mapstructure:"default" json:"default"`
}

// LoadConfig configures the startup data load.
type LoadConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from path (optional) and environment.
// An empty path looks for map.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("map")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CHOROPLETH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Style.Palette) == 0 {
		cfg.Style.Palette = choropleth.DefaultPalette
	}
	if cfg.Style.DefaultOpacity < 0 || cfg.Style.DefaultOpacity > 1 {
		return nil, eris.Errorf("config: default_opacity %v outside [0,1]", cfg.Style.DefaultOpacity)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults only; the decode cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("style.palette", choropleth.DefaultPalette)
	v.SetDefault("style.default_opacity", choropleth.DefaultOpacity)
	v.SetDefault("style.seed", 0)
	v.SetDefault("format.locale", "id")
	v.SetDefault("format.area_unit", "km²")
	v.SetDefault("fields.name", "NAMOBJ")
	v.SetDefault("fields.district", "WADMKC")
	v.SetDefault("fields.regency", "WADMKK")
	v.SetDefault("fields.area", "LUASWH")
	v.SetDefault("fields.area_alt", "ShapeArea")
	v.SetDefault("viewport.center", [2]float64{-2.45, 119.3})
	v.SetDefault("viewport.zoom", 8)
	v.SetDefault("viewport.min_zoom", 7)
	v.SetDefault("viewport.max_bounds", [4]float64{-3.9, 118.4, -0.8, 119.9})
	v.SetDefault("layers", []map[string]any{
		{
			"name":        "Satelit",
			"url":         "http://{s}.google.com/vt/lyrs=s,h&x={x}&y={y}&z={z}",
			"subdomains":  []string{"mt0", "mt1", "mt2", "mt3"},
			"max_zoom":    20,
			"attribution": "© Google Maps",
			"default":     true,
		},
		{
			"name":        "Jalan",
			"url":         "http://{s}.google.com/vt/lyrs=m&x={x}&y={y}&z={z}",
			"subdomains":  []string{"mt0", "mt1", "mt2", "mt3"},
			"max_zoom":    20,
			"attribution": "© Google Maps",
		},
	})
	v.SetDefault("load.timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// PropertyFields returns the property keys for the choropleth pipeline.
func (c *Config) PropertyFields() choropleth.Fields {
	return choropleth.Fields{
		Name:     c.Fields.Name,
		District: c.Fields.District,
		Regency:  c.Fields.Regency,
		Area:     c.Fields.Area,
		AreaAlt:  c.Fields.AreaAlt,
	}
}

// Formatter returns the number formatter for the configured locale.
func (c *Config) Formatter() choropleth.Formatter {
	return choropleth.NewFormatter(c.Format.Locale, c.Format.AreaUnit)
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
