package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/lineintersector"
)

// Intersects reports whether the buffer polygon and g share any area or
// boundary. Touching at a single boundary point counts as intersecting.
// Internal failures report false.
func Intersects(buffer *geom.Polygon, g geom.T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if buffer == nil || g == nil {
		return false
	}
	area := toPolygon(buffer.Coords())
	if area == nil {
		return false
	}
	return intersectsPolygon(area, g)
}

func intersectsPolygon(area orb.Polygon, g geom.T) bool {
	switch t := g.(type) {
	case *geom.Point:
		return planar.PolygonContains(area, toPoint(t.Coords()))
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			if planar.PolygonContains(area, toPoint(t.Point(i).Coords())) {
				return true
			}
		}
		return false
	case *geom.LineString:
		return pathIntersects(area, toPath(t.Coords()))
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			if pathIntersects(area, toPath(t.LineString(i).Coords())) {
				return true
			}
		}
		return false
	case *geom.Polygon:
		other := toPolygon(t.Coords())
		return other != nil && polygonsIntersect(area, other)
	case *geom.MultiPolygon:
		for _, c := range t.Coords() {
			if other := toPolygon(c); other != nil && polygonsIntersect(area, other) {
				return true
			}
		}
		return false
	case *geom.GeometryCollection:
		for _, member := range t.Geoms() {
			if intersectsPolygon(area, member) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// polygonsIntersect tests two polygons for shared area or boundary. With no
// crossing edges the polygons are either disjoint or one lies within the
// other, so a single vertex test on each side settles it.
func polygonsIntersect(a, b orb.Polygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, ra := range a {
		for _, rb := range b {
			if ringsCross(ra, rb) {
				return true
			}
		}
	}
	return planar.PolygonContains(a, b[0][0]) || planar.PolygonContains(b, a[0][0])
}

func pathIntersects(area orb.Polygon, path []orb.Point) bool {
	if len(path) == 0 {
		return false
	}
	if !area.Bound().Intersects(orb.MultiPoint(path).Bound()) {
		return false
	}
	for _, p := range path {
		if planar.PolygonContains(area, p) {
			return true
		}
	}
	for _, ring := range area {
		for i := 1; i < len(path); i++ {
			if segmentCrossesRing(path[i-1], path[i], ring) {
				return true
			}
		}
	}
	return false
}

func ringsCross(a, b orb.Ring) bool {
	n := len(a)
	for i := 0; i < n; i++ {
		if segmentCrossesRing(a[i], a[(i+1)%n], b) {
			return true
		}
	}
	return false
}

// segmentCrossesRing treats the ring as closed whether or not its last
// vertex repeats the first.
func segmentCrossesRing(p, q orb.Point, ring orb.Ring) bool {
	n := len(ring)
	for j := 0; j < n; j++ {
		if segmentsIntersect(p, q, ring[j], ring[(j+1)%n]) {
			return true
		}
	}
	return false
}

// segmentsIntersect includes endpoint contact and collinear overlap.
func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	res := lineintersector.LineIntersectsLine(lineintersector.RobustLineIntersector{},
		geom.Coord{p1[0], p1[1]}, geom.Coord{p2[0], p2[1]},
		geom.Coord{p3[0], p3[1]}, geom.Coord{p4[0], p4[1]})
	return res.HasIntersection()
}

func toPath(coords []geom.Coord) []orb.Point {
	path := make([]orb.Point, len(coords))
	for i, c := range coords {
		path[i] = toPoint(c)
	}
	return path
}
