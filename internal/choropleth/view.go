package choropleth

import (
	"sync"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

var (
	ErrUnknownRegion = eris.New("choropleth: unknown region")
	ErrNoLayer       = eris.New("choropleth: no layer rendered")
)

// ViewOptions configures a View.
type ViewOptions struct {
	Styler   *Styler
	Fields   Fields
	Format   Formatter
	Viewport Viewport
	Opacity  float64
}

// View is the interaction state of one map page: the current opacity, the
// rendered composite and the last selected feature. Safe for concurrent use.
type View struct {
	mu sync.Mutex

	opacity   float64
	renderer  Renderer
	projector Projector
	viewport  Viewport

	layer    *Composite
	stats    Stats
	selected geojson.Properties
	picked   bool
}

// NewView creates a view with no layer.
func NewView(opts ViewOptions) *View {
	if opts.Styler == nil {
		opts.Styler = NewStyler(nil, 0)
	}
	if opts.Format.printer == nil {
		opts.Format = NewFormatter("id", "km²")
	}
	return &View{
		opacity:   clamp(opts.Opacity),
		renderer:  Renderer{Styler: opts.Styler, Fields: opts.Fields},
		projector: Projector{Fields: opts.Fields, Format: opts.Format},
		viewport:  opts.Viewport,
	}
}

// Load renders the collection at the current opacity, shows it on the
// viewport and computes its statistics.
func (v *View) Load(fc *geojson.FeatureCollection) *Composite {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.layer = v.renderer.Render(fc, v.opacity, v.selectLocked)
	v.stats = Aggregate(fc, v.renderer.Fields)
	v.selected, v.picked = nil, false
	Show(v.viewport, v.layer)
	return v.layer
}

func (v *View) selectLocked(p geojson.Properties) {
	v.selected, v.picked = p, true
}

// Layer returns the rendered composite, or nil before Load.
func (v *View) Layer() *Composite {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layer
}

// Opacity returns the current fill opacity.
func (v *View) Opacity() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opacity
}

// OpacityLabel is the slider readout, e.g. "70%".
func (v *View) OpacityLabel() string {
	return v.projector.Format.Percent(v.Opacity())
}

// SetOpacity sets the fill opacity, clamped to [0,1], and re-styles every
// rendered region. changed is false when the value was already current.
func (v *View) SetOpacity(opacity float64) (changed bool) {
	opacity = clamp(opacity)

	v.mu.Lock()
	defer v.mu.Unlock()

	changed = opacity != v.opacity
	v.opacity = opacity
	if v.layer != nil {
		v.layer.SetFillOpacity(opacity)
	}
	return changed
}

// ResetView refits the viewport to the rendered layer. It reports false
// when there is nothing to fit.
func (v *View) ResetView() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.layer == nil || v.viewport == nil {
		return false
	}
	b, ok := v.layer.Bound()
	if !ok || v.layer.Len() == 0 {
		return false
	}
	v.viewport.FitBounds(b)
	return true
}

// ToggleBorders flips every region's border. It reports false when no
// layer has been rendered.
func (v *View) ToggleBorders() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.layer == nil {
		return false
	}
	v.layer.ToggleBorders()
	return true
}

// HoverStart highlights a region.
func (v *View) HoverStart(id string) (Style, error) {
	return v.dispatch(id, func(r *Region, ev *Event) { r.OnHoverStart(ev) })
}

// HoverEnd clears a region's highlight.
func (v *View) HoverEnd(id string) (Style, error) {
	return v.dispatch(id, func(r *Region, ev *Event) { r.OnHoverEnd(ev) })
}

// Select picks a region and returns its info rows. propagated reports
// whether the click reached the map beneath the region.
func (v *View) Select(id string) (rows []InfoRow, propagated bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, err := v.regionLocked(id)
	if err != nil {
		return nil, true, err
	}
	ev := &Event{}
	r.OnSelect(ev)
	return v.projector.Project(v.selected), ev.Propagates(), nil
}

// Selected returns the info rows of the last selected region. ok is false
// when nothing has been selected yet.
func (v *View) Selected() (rows []InfoRow, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.picked {
		return nil, false
	}
	return v.projector.Project(v.selected), true
}

// Styles snapshots the styles of all rendered regions.
func (v *View) Styles() []RegionStyle {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.layer == nil {
		return nil
	}
	return v.layer.Styles()
}

// Stats returns the raw statistics of the loaded collection.
func (v *View) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// StatsView returns the formatted statistics of the loaded collection.
func (v *View) StatsView() StatsView {
	return v.projector.Format.Stats(v.Stats())
}

// Project maps arbitrary properties through the view's projector.
func (v *View) Project(p geojson.Properties) []InfoRow {
	return v.projector.Project(p)
}

func (v *View) dispatch(id string, fn func(*Region, *Event)) (Style, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r, err := v.regionLocked(id)
	if err != nil {
		return Style{}, err
	}
	fn(r, &Event{})
	return r.Style(), nil
}

func (v *View) regionLocked(id string) (*Region, error) {
	if v.layer == nil {
		return nil, ErrNoLayer
	}
	r, ok := v.layer.Region(id)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownRegion, "region %q", id)
	}
	return r, nil
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
