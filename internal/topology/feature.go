package topology

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// Convert decodes a TopoJSON document and expands its first object.
// It returns the feature collection and the object key that was used.
func Convert(data []byte) (*geojson.FeatureCollection, string, error) {
	t, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	key, ok := t.FirstKey()
	if !ok {
		return nil, "", ErrNoObjects
	}
	fc, err := t.FeatureCollection(key)
	if err != nil {
		return nil, "", err
	}
	return fc, key, nil
}

// FeatureCollection expands the named object. A GeometryCollection yields
// one feature per member; any other geometry yields a single feature.
func (t *Topology) FeatureCollection(key string) (*geojson.FeatureCollection, error) {
	obj, ok := t.Objects[key]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownObject, "topology: object %q", key)
	}

	fc := geojson.NewFeatureCollection()
	if obj.Type == "GeometryCollection" {
		for i, g := range obj.Geometries {
			f, err := t.feature(g)
			if err != nil {
				return nil, eris.Wrapf(err, "topology: %s geometry %d", key, i)
			}
			fc.Append(f)
		}
		return fc, nil
	}

	f, err := t.feature(obj)
	if err != nil {
		return nil, eris.Wrapf(err, "topology: %s", key)
	}
	fc.Append(f)
	return fc, nil
}

func (t *Topology) feature(g *Geometry) (*geojson.Feature, error) {
	geom, err := t.geometry(g)
	if err != nil {
		return nil, err
	}
	f := geojson.NewFeature(geom)
	f.ID = g.ID
	for k, v := range g.Properties {
		f.Properties[k] = v
	}
	return f, nil
}

// geometry converts one TopoJSON geometry. Null geometries convert to nil.
func (t *Topology) geometry(g *Geometry) (orb.Geometry, error) {
	switch g.Type {
	case "", "null":
		return nil, nil

	case "Point":
		var pos []float64
		if err := json.Unmarshal(g.Coordinates, &pos); err != nil {
			return nil, eris.Wrap(err, "topology: point coordinates")
		}
		return t.point(pos), nil

	case "MultiPoint":
		var positions [][]float64
		if err := json.Unmarshal(g.Coordinates, &positions); err != nil {
			return nil, eris.Wrap(err, "topology: multipoint coordinates")
		}
		mp := make(orb.MultiPoint, 0, len(positions))
		for _, pos := range positions {
			mp = append(mp, t.point(pos))
		}
		return mp, nil

	case "LineString":
		var refs []int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, eris.Wrap(err, "topology: linestring arcs")
		}
		pts, err := t.line(refs)
		if err != nil {
			return nil, err
		}
		return orb.LineString(pts), nil

	case "MultiLineString":
		var refs [][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, eris.Wrap(err, "topology: multilinestring arcs")
		}
		mls := make(orb.MultiLineString, 0, len(refs))
		for _, r := range refs {
			pts, err := t.line(r)
			if err != nil {
				return nil, err
			}
			mls = append(mls, orb.LineString(pts))
		}
		return mls, nil

	case "Polygon":
		var refs [][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, eris.Wrap(err, "topology: polygon arcs")
		}
		return t.polygon(refs)

	case "MultiPolygon":
		var refs [][][]int
		if err := json.Unmarshal(g.Arcs, &refs); err != nil {
			return nil, eris.Wrap(err, "topology: multipolygon arcs")
		}
		mp := make(orb.MultiPolygon, 0, len(refs))
		for _, r := range refs {
			p, err := t.polygon(r)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil

	case "GeometryCollection":
		c := make(orb.Collection, 0, len(g.Geometries))
		for _, child := range g.Geometries {
			geom, err := t.geometry(child)
			if err != nil {
				return nil, err
			}
			if geom != nil {
				c = append(c, geom)
			}
		}
		return c, nil
	}

	return nil, eris.Errorf("topology: unsupported geometry type %q", g.Type)
}

func (t *Topology) point(pos []float64) orb.Point {
	if len(pos) < 2 {
		return orb.Point{}
	}
	if t.Transform == nil {
		return orb.Point{pos[0], pos[1]}
	}
	return orb.Point{
		pos[0]*t.Transform.Scale[0] + t.Transform.Translate[0],
		pos[1]*t.Transform.Scale[1] + t.Transform.Translate[1],
	}
}

func (t *Topology) polygon(rings [][]int) (orb.Polygon, error) {
	p := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		ring, err := t.ring(r)
		if err != nil {
			return nil, err
		}
		p = append(p, ring)
	}
	return p, nil
}

// ring stitches arcs into a ring, padding degenerate rings to four points.
func (t *Topology) ring(refs []int) (orb.Ring, error) {
	pts, err := t.line(refs)
	if err != nil {
		return nil, err
	}
	for len(pts) > 0 && len(pts) < 4 {
		pts = append(pts, pts[0])
	}
	return orb.Ring(pts), nil
}

// line concatenates the referenced arcs. A negative reference ~i walks arc i
// backwards. Each arc after the first starts where the previous one ended, so
// its first point is dropped. A single-point line repeats that point.
func (t *Topology) line(refs []int) ([]orb.Point, error) {
	var pts []orb.Point
	for _, ref := range refs {
		idx, reversed := ref, false
		if ref < 0 {
			idx, reversed = ^ref, true
		}
		if idx >= len(t.arcs) {
			return nil, eris.Errorf("topology: arc %d out of range (%d arcs)", idx, len(t.arcs))
		}

		arc := t.arcs[idx]
		if len(pts) > 0 {
			pts = pts[:len(pts)-1]
		}
		if reversed {
			for i := len(arc) - 1; i >= 0; i-- {
				pts = append(pts, arc[i])
			}
		} else {
			pts = append(pts, arc...)
		}
	}
	if len(pts) == 1 {
		pts = append(pts, pts[0])
	}
	return pts, nil
}
