package choropleth

import "github.com/paulmach/orb/geojson"

// Placeholder is shown for any missing attribute.
const Placeholder = "-"

// InfoRow is one labelled attribute of the selected region.
type InfoRow struct {
	Label string `json:"label" doc:"Attribute label" example:"Kecamatan"`
	Value string `json:"value" doc:"Attribute value" example:"Mamuju"`
}

// Projector maps feature properties to the attribute panel.
type Projector struct {
	Fields Fields
	Format Formatter
}

// Project returns the village, district, regency and area rows, in that order.
func (p Projector) Project(props geojson.Properties) []InfoRow {
	area := Placeholder
	if v, ok := p.Fields.AreaValue(props); ok {
		area = p.Format.Area(v)
	}
	return []InfoRow{
		{Label: "Desa/Kel", Value: orPlaceholder(text(props, p.Fields.Name))},
		{Label: "Kecamatan", Value: orPlaceholder(text(props, p.Fields.District))},
		{Label: "Kabupaten", Value: orPlaceholder(text(props, p.Fields.Regency))},
		{Label: "Luas", Value: area},
	}
}

func orPlaceholder(s string, ok bool) string {
	if !ok {
		return Placeholder
	}
	return s
}
