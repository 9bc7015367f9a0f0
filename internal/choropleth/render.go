package choropleth

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Viewport is the map surface a composite is drawn on.
type Viewport interface {
	AddLayer(c *Composite)
	FitBounds(b orb.Bound)
}

// Renderer builds composites from feature collections.
type Renderer struct {
	Styler *Styler
	Fields Fields
}

// Render builds one region per feature, styled at the given opacity, with
// onSelect receiving the properties of clicked regions.
func (r Renderer) Render(fc *geojson.FeatureCollection, opacity float64, onSelect func(geojson.Properties)) *Composite {
	var features []*geojson.Feature
	if fc != nil {
		features = fc.Features
	}

	c := newComposite(len(features))
	for i, f := range features {
		tooltip, ok := r.Fields.DisplayName(f.Properties)
		if !ok {
			tooltip = TooltipFallback
		}
		c.add(&Region{
			ID:       RegionID(i),
			Feature:  f,
			Tooltip:  tooltip,
			style:    r.Styler.Style(f, opacity),
			onSelect: onSelect,
		})
	}
	return c
}

// Show adds the composite to the viewport and fits the viewport to its
// extent. Composites without extent are added but never fitted.
func Show(vp Viewport, c *Composite) {
	if vp == nil {
		return
	}
	vp.AddLayer(c)
	if b, ok := c.Bound(); ok && c.Len() > 0 {
		vp.FitBounds(b)
	}
}
