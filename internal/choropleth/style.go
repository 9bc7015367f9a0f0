package choropleth

import (
	"math/rand/v2"
	"sync"

	"github.com/paulmach/orb/geojson"
)

const (
	BorderWeight    = 1.2
	BorderColor     = "#ffffff"
	HighlightWeight = 4
	HighlightColor  = "#ffff00"
	DefaultOpacity  = 0.7
)

// DefaultPalette is the pastel fill palette.
var DefaultPalette = []string{
	"#FFADAD", "#FFD6A5", "#FDFFB6", "#CAFFBF",
	"#9BF6FF", "#A0C4FF", "#BDB2FF", "#FFC6FF",
}

// Style is the visual style of one region.
type Style struct {
	FillColor   string  `json:"fillColor" doc:"Fill colour (CSS)" example:"#FFADAD"`
	Weight      float64 `json:"weight" doc:"Stroke width" example:"1.2"`
	Color       string  `json:"color" doc:"Stroke colour (CSS)" example:"#ffffff"`
	FillOpacity float64 `json:"fillOpacity" minimum:"0" maximum:"1" doc:"Fill opacity (0-1)" example:"0.7"`
}

// Styler assigns styles at render time. Fill colours are drawn uniformly
// from the palette and do not depend on the feature.
type Styler struct {
	palette []string

	mu  sync.Mutex
	rng *rand.Rand // nil draws from the global source
}

// NewStyler creates a styler. A zero seed re-randomizes colours on every
// render; any other seed makes the sequence reproducible.
func NewStyler(palette []string, seed int64) *Styler {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	s := &Styler{palette: append([]string(nil), palette...)}
	if seed != 0 {
		s.rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
	}
	return s
}

// Palette returns a copy of the fill palette.
func (s *Styler) Palette() []string {
	return append([]string(nil), s.palette...)
}

// Style returns the initial style of a feature at the given opacity.
func (s *Styler) Style(_ *geojson.Feature, opacity float64) Style {
	return Style{
		FillColor:   s.palette[s.index()],
		Weight:      BorderWeight,
		Color:       BorderColor,
		FillOpacity: opacity,
	}
}

func (s *Styler) index() int {
	if s.rng == nil {
		return rand.IntN(len(s.palette))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(len(s.palette))
}
