package choropleth

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// recorder is a Viewport that remembers what it was asked to do.
type recorder struct {
	layers []*Composite
	fits   []orb.Bound
}

func (r *recorder) AddLayer(c *Composite) { r.layers = append(r.layers, c) }
func (r *recorder) FitBounds(b orb.Bound) { r.fits = append(r.fits, b) }

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func feature(g orb.Geometry, props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

// scenario is the two-village collection: one area on the primary field,
// one on the fallback field as a string.
func scenario() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(square(119, -3), geojson.Properties{
		"NAMOBJ": "Bambu", "WADMKC": "Mamuju", "WADMKK": "Mamuju", "LUASWH": "1.25",
	}))
	fc.Append(feature(square(120, -2), geojson.Properties{
		"WADMKC": "Tapalang", "ShapeArea": "3.00",
	}))
	return fc
}

func newTestView(vp Viewport, locale string) *View {
	return NewView(ViewOptions{
		Styler:   NewStyler(DefaultPalette, 42),
		Fields:   DefaultFields(),
		Format:   NewFormatter(locale, "km²"),
		Viewport: vp,
		Opacity:  DefaultOpacity,
	})
}
