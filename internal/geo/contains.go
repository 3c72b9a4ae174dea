package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geom"
)

// Contains reports whether p lies inside or on the boundary of a Polygon or
// MultiPolygon. Points inside a hole are outside. Any other geometry, or a
// polygon whose outer ring has fewer than three vertices, contains nothing.
func Contains(g geom.T, p orb.Point) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	switch t := g.(type) {
	case *geom.Polygon:
		poly := toPolygon(t.Coords())
		return poly != nil && planar.PolygonContains(poly, p)
	case *geom.MultiPolygon:
		for _, c := range t.Coords() {
			if poly := toPolygon(c); poly != nil && planar.PolygonContains(poly, p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// toPolygon converts go-geom ring coordinates to an orb polygon. It returns
// nil when the outer ring is degenerate; degenerate holes are dropped.
func toPolygon(rings [][]geom.Coord) orb.Polygon {
	if len(rings) == 0 || len(rings[0]) < 3 {
		return nil
	}
	poly := make(orb.Polygon, 0, len(rings))
	for i, ring := range rings {
		if len(ring) < 3 {
			if i == 0 {
				return nil
			}
			continue
		}
		poly = append(poly, toRing(ring))
	}
	return poly
}

func toRing(coords []geom.Coord) orb.Ring {
	r := make(orb.Ring, len(coords))
	for i, c := range coords {
		r[i] = toPoint(c)
	}
	return r
}

func toPoint(c geom.Coord) orb.Point {
	return orb.Point{c[0], c[1]}
}
