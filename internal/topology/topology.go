// Package topology expands TopoJSON documents into GeoJSON feature collections.
//
// A topology shares boundary arcs between neighbouring regions. Converting an
// object stitches its arc references back into rings and lines, producing
// orb geometries wrapped in geojson features with their original properties.
package topology

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

// ErrNoObjects is returned when a topology carries no named objects.
var ErrNoObjects = eris.New("topology: document has no objects")

// ErrUnknownObject is returned when a requested object key does not exist.
var ErrUnknownObject = eris.New("topology: unknown object")

// Transform is the quantization transform of a topology.
type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// Geometry is a TopoJSON geometry object. Arc and coordinate payloads are
// kept raw until the geometry type is known.
type Geometry struct {
	Type        string          `json:"type"`
	ID          any             `json:"id,omitempty"`
	Properties  map[string]any  `json:"properties,omitempty"`
	Arcs        json.RawMessage `json:"arcs,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []*Geometry     `json:"geometries,omitempty"`
}

// Topology is a decoded TopoJSON document.
type Topology struct {
	Type      string
	BBox      []float64
	Transform *Transform
	Objects   map[string]*Geometry

	arcs  [][]orb.Point
	order []string
}

type topologyDoc struct {
	Type      string          `json:"type"`
	BBox      []float64       `json:"bbox,omitempty"`
	Transform *Transform      `json:"transform,omitempty"`
	Arcs      [][][]float64   `json:"arcs"`
	Objects   json.RawMessage `json:"objects"`
}

// Decode parses a TopoJSON document.
func Decode(data []byte) (*Topology, error) {
	var t Topology
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UnmarshalJSON decodes the document, keeping object keys in document order
// and resolving quantized arcs to absolute positions.
func (t *Topology) UnmarshalJSON(data []byte) error {
	var doc topologyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return eris.Wrap(err, "topology: decode document")
	}
	if doc.Type != "Topology" {
		return eris.Errorf("topology: unexpected type %q", doc.Type)
	}

	objects, order, err := decodeObjects(doc.Objects)
	if err != nil {
		return err
	}

	*t = Topology{
		Type:      doc.Type,
		BBox:      doc.BBox,
		Transform: doc.Transform,
		Objects:   objects,
		order:     order,
		arcs:      decodeArcs(doc.Arcs, doc.Transform),
	}
	return nil
}

// decodeObjects reads the objects member token by token so the key order of
// the source document survives.
func decodeObjects(raw json.RawMessage) (map[string]*Geometry, []string, error) {
	objects := map[string]*Geometry{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return objects, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, eris.Wrap(err, "topology: decode objects")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, eris.New("topology: objects is not a JSON object")
	}

	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, eris.Wrap(err, "topology: decode object key")
		}
		key, _ := tok.(string)

		var g Geometry
		if err := dec.Decode(&g); err != nil {
			return nil, nil, eris.Wrapf(err, "topology: decode object %q", key)
		}
		if _, dup := objects[key]; !dup {
			order = append(order, key)
		}
		objects[key] = &g
	}
	return objects, order, nil
}

// decodeArcs converts arcs to absolute coordinates. With a transform, arc
// positions are delta-encoded integers.
func decodeArcs(arcs [][][]float64, tr *Transform) [][]orb.Point {
	out := make([][]orb.Point, len(arcs))
	for i, arc := range arcs {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if tr == nil {
				pts = append(pts, orb.Point{pos[0], pos[1]})
				continue
			}
			x += pos[0]
			y += pos[1]
			pts = append(pts, orb.Point{
				x*tr.Scale[0] + tr.Translate[0],
				y*tr.Scale[1] + tr.Translate[1],
			})
		}
		out[i] = pts
	}
	return out
}

// Keys returns the object keys in document order.
func (t *Topology) Keys() []string {
	return append([]string(nil), t.order...)
}

// FirstKey returns the first object key in document order.
func (t *Topology) FirstKey() (string, bool) {
	if len(t.order) == 0 {
		return "", false
	}
	return t.order[0], true
}

// ArcCount returns the number of shared arcs.
func (t *Topology) ArcCount() int {
	return len(t.arcs)
}
