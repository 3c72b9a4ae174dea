// Package geo provides the geometry primitives of the proximity engine.
//
// Every function here is total: malformed or unsupported geometry resolves
// to a documented sentinel (Unreachable, false, Origin) instead of an error,
// so analyzers can run over arbitrary real-world layers.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Unreachable is the distance reported when a distance cannot be computed.
// It never passes a radius filter.
var Unreachable = math.Inf(1)

// Origin is the fallback representative point.
var Origin = orb.Point{0, 0}

// IsReachable reports whether d is a usable distance.
func IsReachable(d float64) bool {
	return !math.IsInf(d, 0) && !math.IsNaN(d) && d >= 0
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b) / 1000
}

// DistanceToLine returns the minimum distance in kilometers from p to the
// line data in g. LineString and MultiLineString are measured directly;
// GeometryCollection members that are lines are measured and all other
// members ignored. Any other geometry, or a failure, yields Unreachable.
func DistanceToLine(p orb.Point, g geom.T) (d float64) {
	defer func() {
		if r := recover(); r != nil {
			d = Unreachable
		}
	}()

	switch t := g.(type) {
	case *geom.LineString:
		return pathDistance(p, t.Coords())
	case *geom.MultiLineString:
		best := Unreachable
		for i := 0; i < t.NumLineStrings(); i++ {
			best = math.Min(best, pathDistance(p, t.LineString(i).Coords()))
		}
		return best
	case *geom.GeometryCollection:
		best := Unreachable
		for _, member := range t.Geoms() {
			switch member.(type) {
			case *geom.LineString, *geom.MultiLineString:
				best = math.Min(best, DistanceToLine(p, member))
			}
		}
		return best
	default:
		return Unreachable
	}
}

// DistanceToPolygon returns 0 when p lies inside or on g, otherwise the
// minimum distance in kilometers from p to any ring of g. Non-polygonal or
// degenerate geometry yields Unreachable.
func DistanceToPolygon(p orb.Point, g geom.T) (d float64) {
	defer func() {
		if r := recover(); r != nil {
			d = Unreachable
		}
	}()

	var rings [][]geom.Coord
	switch t := g.(type) {
	case *geom.Polygon:
		rings = t.Coords()
	case *geom.MultiPolygon:
		for _, poly := range t.Coords() {
			rings = append(rings, poly...)
		}
	default:
		return Unreachable
	}

	if Contains(g, p) {
		return 0
	}

	best := Unreachable
	for _, ring := range rings {
		best = math.Min(best, pathDistance(p, ring))
	}
	return best
}

// pathDistance measures p against an open or closed coordinate path of at
// least two vertices. Segments are projected onto a local equirectangular
// plane centered on p, in kilometers, where planar distance approximates the
// geodesic distance well at analysis radii.
func pathDistance(p orb.Point, coords []geom.Coord) float64 {
	if len(coords) < 2 {
		return Unreachable
	}

	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return Unreachable
		}
		x, y := project(p, c[0], c[1])
		flat = append(flat, x, y)
	}

	d := xy.DistanceFromPointToLineString(geom.XY, geom.Coord{0, 0}, flat)
	if math.IsNaN(d) {
		return Unreachable
	}
	return d
}

// project maps lon/lat onto a plane tangent at origin, in kilometers.
func project(origin orb.Point, lon, lat float64) (x, y float64) {
	kmPerRad := orb.EarthRadius / 1000
	lat0 := deg2rad(origin.Lat())
	dLon := deg2rad(normalizeLon(lon - origin.Lon()))
	dLat := deg2rad(lat - origin.Lat())
	return dLon * math.Cos(lat0) * kmPerRad, dLat * kmPerRad
}

// normalizeLon wraps a longitude delta into [-180, 180).
func normalizeLon(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
