// Package choropleth turns a village feature collection into styled map
// regions, attribute panels and aggregate statistics, and holds the
// per-page interaction state that mutates them.
package choropleth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Fields names the property keys read from each feature.
type Fields struct {
	Name     string
	District string
	Regency  string
	Area     string
	AreaAlt  string
}

// DefaultFields returns the keys used by the Indonesian village boundary data.
func DefaultFields() Fields {
	return Fields{
		Name:     "NAMOBJ",
		District: "WADMKC",
		Regency:  "WADMKK",
		Area:     "LUASWH",
		AreaAlt:  "ShapeArea",
	}
}

// text returns a displayable property value. Nil, empty strings, zero
// numbers and false count as absent.
func text(p geojson.Properties, key string) (string, bool) {
	if p == nil || key == "" {
		return "", false
	}
	switch v := p[key].(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		if v == 0 {
			return "", false
		}
		return strconv.Itoa(v), true
	case bool:
		return "true", v
	default:
		return fmt.Sprint(v), true
	}
}

// DisplayName returns the region's display name.
func (f Fields) DisplayName(p geojson.Properties) (string, bool) {
	return text(p, f.Name)
}

// AreaValue returns the area from the primary field, else the fallback field.
func (f Fields) AreaValue(p geojson.Properties) (float64, bool) {
	if v, ok := numeric(p, f.Area); ok {
		return v, true
	}
	return numeric(p, f.AreaAlt)
}

// numeric reads a numeric property. Numeric strings such as "1.25" are
// accepted; zero numbers, empty and non-numeric strings count as absent.
func numeric(p geojson.Properties, key string) (float64, bool) {
	if p == nil || key == "" {
		return 0, false
	}
	switch v := p[key].(type) {
	case float64:
		return v, v != 0
	case int:
		return float64(v), v != 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
