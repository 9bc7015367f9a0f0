package choropleth

import (
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	id := NewFormatter("id", "km²")
	en := NewFormatter("en", "km²")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"id total rounds half up", id.Total(4.25), "4,3 km²"},
		{"en total rounds half up", en.Total(4.25), "4.3 km²"},
		{"id total zero", id.Total(0), "0 km²"},
		{"id total grouping", id.Total(16787.24), "16.787,2 km²"},
		{"en total grouping", en.Total(16787.24), "16,787.2 km²"},
		{"id area three digits", id.Area(1.2346), "1,235 km²"},
		{"id area trims zeros", id.Area(3), "3 km²"},
		{"count", id.Count(650), "650"},
		{"percent", id.Percent(0.7), "70%"},
		{"percent rounds", id.Percent(0.555), "56%"},
		{"percent bounds", id.Percent(1), "100%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestFormatterBadLocaleFallsBack(t *testing.T) {
	f := NewFormatter("!!", "km²")
	assert.Equal(t, "4,3 km²", f.Total(4.25))
}

func TestFieldsFalsyValues(t *testing.T) {
	fields := DefaultFields()

	tests := []struct {
		name   string
		props  geojson.Properties
		area   float64
		hasAr  bool
		hasNam bool
	}{
		{"primary number", geojson.Properties{"LUASWH": 2.5, "NAMOBJ": "A"}, 2.5, true, true},
		{"primary string", geojson.Properties{"LUASWH": " 1.25 "}, 1.25, true, false},
		{"zero primary falls back", geojson.Properties{"LUASWH": 0.0, "ShapeArea": 4.0}, 4, true, false},
		{"empty primary falls back", geojson.Properties{"LUASWH": "", "ShapeArea": "3.00"}, 3, true, false},
		{"primary wins", geojson.Properties{"LUASWH": 1.0, "ShapeArea": 9.0}, 1, true, false},
		{"non-numeric is absent", geojson.Properties{"LUASWH": "n/a"}, 0, false, false},
		{"empty name", geojson.Properties{"NAMOBJ": ""}, 0, false, false},
		{"nil props", nil, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := fields.AreaValue(tt.props)
			assert.Equal(t, tt.hasAr, ok)
			assert.InDelta(t, tt.area, v, 1e-9)

			_, ok = fields.DisplayName(tt.props)
			assert.Equal(t, tt.hasNam, ok)
		})
	}
}
