package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no map.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, choropleth.DefaultPalette, cfg.Style.Palette)
	assert.Len(t, cfg.Style.Palette, 8)
	assert.InDelta(t, 0.7, cfg.Style.DefaultOpacity, 0.001)
	assert.Equal(t, int64(0), cfg.Style.Seed)
	assert.Equal(t, "id", cfg.Format.Locale)
	assert.Equal(t, "km²", cfg.Format.AreaUnit)
	assert.Equal(t, "NAMOBJ", cfg.Fields.Name)
	assert.Equal(t, "WADMKC", cfg.Fields.District)
	assert.Equal(t, "WADMKK", cfg.Fields.Regency)
	assert.Equal(t, "LUASWH", cfg.Fields.Area)
	assert.Equal(t, "ShapeArea", cfg.Fields.AreaAlt)
	assert.Equal(t, 8, cfg.Viewport.Zoom)
	assert.Equal(t, 7, cfg.Viewport.MinZoom)
	assert.InDelta(t, -2.45, cfg.Viewport.Center[0], 0.0001)
	assert.InDelta(t, 119.9, cfg.Viewport.MaxBounds[3], 0.0001)
	require.Len(t, cfg.Layers, 2)
	assert.Equal(t, "Satelit", cfg.Layers[0].Name)
	assert.True(t, cfg.Layers[0].Default)
	assert.Equal(t, "Jalan", cfg.Layers[1].Name)
	assert.Equal(t, 20, cfg.Layers[1].MaxZoom)
	assert.Equal(t, 60, cfg.Load.TimeoutSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()

	yaml := `
style:
  default_opacity: 0.4
  seed: 42
format:
  locale: en
fields:
  name: NAME
log:
  level: debug
  format: json
`
	path := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, cfg.Style.DefaultOpacity, 0.001)
	assert.Equal(t, int64(42), cfg.Style.Seed)
	assert.Equal(t, "en", cfg.Format.Locale)
	assert.Equal(t, "NAME", cfg.Fields.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "WADMKC", cfg.Fields.District)
	assert.Len(t, cfg.Style.Palette, 8)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format:\n  locale: en\n"), 0644))

	t.Setenv("CHOROPLETH_FORMAT_LOCALE", "de")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Format.Locale)
}

func TestLoadRejectsOpacityOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte("style:\n  default_opacity: 1.5\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "id", cfg.Format.Locale)
	assert.Len(t, cfg.Style.Palette, 8)
	assert.Len(t, cfg.Layers, 2)
}

func TestPipelineHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, choropleth.DefaultFields(), cfg.PropertyFields())
	assert.Equal(t, "4,3 km²", cfg.Formatter().Total(4.25))

	cfg.Format.Locale = "en"
	assert.Equal(t, "4.3 km²", cfg.Formatter().Total(4.25))
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
