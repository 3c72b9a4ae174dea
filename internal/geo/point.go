package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// RepresentativePoint reduces a geometry to one point. A Point is itself, a
// MultiPoint is its first member, anything else is its centroid. When no
// point can be derived the result is Origin.
func RepresentativePoint(g geom.T) (p orb.Point) {
	defer func() {
		if r := recover(); r != nil {
			p = Origin
		}
	}()

	switch t := g.(type) {
	case nil:
		return Origin
	case *geom.Point:
		if t.Empty() {
			return Origin
		}
		return toPoint(t.Coords())
	case *geom.MultiPoint:
		if t.NumPoints() == 0 {
			return Origin
		}
		return toPoint(t.Point(0).Coords())
	}

	c, err := xy.Centroid(g)
	if err != nil || len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return Origin
	}
	return orb.Point{c[0], c[1]}
}
