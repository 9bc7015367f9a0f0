package choropleth

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TooltipFallback labels regions without a display name.
const TooltipFallback = "Desa"

// Event is an interaction delivered to a region.
type Event struct {
	stopped bool
}

// StopPropagation keeps the event from reaching the map beneath the region.
func (e *Event) StopPropagation() { e.stopped = true }

// Propagates reports whether the event continues to the map.
func (e *Event) Propagates() bool { return !e.stopped }

// Interactive is implemented by every rendered region.
type Interactive interface {
	OnHoverStart(ev *Event)
	OnHoverEnd(ev *Event)
	OnSelect(ev *Event)
}

// Region is the rendered layer of one feature.
type Region struct {
	ID      string
	Feature *geojson.Feature
	Tooltip string

	style    Style
	order    int
	parent   *Composite
	onSelect func(geojson.Properties)
}

var _ Interactive = (*Region)(nil)

// Style returns the current style.
func (r *Region) Style() Style { return r.style }

// Order is the draw order; higher values draw above lower ones.
func (r *Region) Order() int { return r.order }

// Bound returns the extent of the region's geometry.
func (r *Region) Bound() (orb.Bound, bool) {
	if r.Feature == nil || r.Feature.Geometry == nil {
		return orb.Bound{}, false
	}
	return r.Feature.Geometry.Bound(), true
}

// OnHoverStart highlights the border and raises the region above its siblings.
func (r *Region) OnHoverStart(_ *Event) {
	r.style.Weight = HighlightWeight
	r.style.Color = HighlightColor
	if r.parent != nil {
		r.order = r.parent.raise()
	}
}

// OnHoverEnd restores the normal border.
func (r *Region) OnHoverEnd(_ *Event) {
	r.style.Weight = BorderWeight
	r.style.Color = BorderColor
}

// OnSelect stops the event at the region and forwards the feature properties.
func (r *Region) OnSelect(ev *Event) {
	if ev != nil {
		ev.StopPropagation()
	}
	if r.onSelect != nil {
		r.onSelect(r.Feature.Properties)
	}
}

// Composite groups the regions of one rendered collection.
type Composite struct {
	regions []*Region
	byID    map[string]*Region
	bound   orb.Bound
	bounded bool
	top     int
}

func newComposite(n int) *Composite {
	return &Composite{
		regions: make([]*Region, 0, n),
		byID:    make(map[string]*Region, n),
	}
}

func (c *Composite) add(r *Region) {
	r.parent = c
	r.order = len(c.regions)
	c.top = r.order
	c.regions = append(c.regions, r)
	c.byID[r.ID] = r

	if b, ok := r.Bound(); ok {
		if c.bounded {
			c.bound = c.bound.Union(b)
		} else {
			c.bound, c.bounded = b, true
		}
	}
}

func (c *Composite) raise() int {
	c.top++
	return c.top
}

// Len returns the number of regions.
func (c *Composite) Len() int { return len(c.regions) }

// Regions returns the regions in render order.
func (c *Composite) Regions() []*Region { return c.regions }

// Region looks a region up by ID.
func (c *Composite) Region(id string) (*Region, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Bound returns the combined extent. ok is false when no region has geometry.
func (c *Composite) Bound() (orb.Bound, bool) {
	return c.bound, c.bounded
}

// SetFillOpacity re-styles every region's fill opacity, keeping fill colours.
func (c *Composite) SetFillOpacity(opacity float64) {
	for _, r := range c.regions {
		r.style.FillOpacity = opacity
	}
}

// RegionStyle is the style of one region keyed by region ID.
type RegionStyle struct {
	ID    string `json:"id" doc:"Region ID" example:"0"`
	Order int    `json:"order" doc:"Draw order"`
	Style
}

// Styles snapshots every region's style in render order.
func (c *Composite) Styles() []RegionStyle {
	out := make([]RegionStyle, len(c.regions))
	for i, r := range c.regions {
		out[i] = RegionStyle{ID: r.ID, Order: r.order, Style: r.style}
	}
	return out
}

// RegionID is the ID assigned to the feature at index i of a collection.
func RegionID(i int) string {
	return strconv.Itoa(i)
}

// ToggleBorders hides visible borders and restores hidden ones.
func (c *Composite) ToggleBorders() {
	for _, r := range c.regions {
		if r.style.Weight == 0 {
			r.style.Weight = BorderWeight
		} else {
			r.style.Weight = 0
		}
	}
}
