package choropleth

import "github.com/paulmach/orb/geojson"

// Stats aggregates a whole feature collection.
type Stats struct {
	Count     int
	TotalArea float64
}

// Aggregate counts features and sums their areas. A feature with neither
// area field contributes zero.
func Aggregate(fc *geojson.FeatureCollection, fields Fields) Stats {
	if fc == nil {
		return Stats{}
	}
	s := Stats{Count: len(fc.Features)}
	for _, f := range fc.Features {
		if v, ok := fields.AreaValue(f.Properties); ok {
			s.TotalArea += v
		}
	}
	return s
}

// StatsView is the display form of Stats.
type StatsView struct {
	Count     string `json:"count" doc:"Village count" example:"650"`
	TotalArea string `json:"totalArea" doc:"Locale-formatted total area" example:"16.787,2 km²"`
}

// Stats formats aggregate statistics for display.
func (f Formatter) Stats(s Stats) StatsView {
	return StatsView{Count: f.Count(s.Count), TotalArea: f.Total(s.TotalArea)}
}
