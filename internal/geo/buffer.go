package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/twpayne/go-geom"
)

// DefaultBufferSteps is the number of vertices on a circular buffer ring.
const DefaultBufferSteps = 64

// Buffer approximates a geodesic circle of radiusKM around center with
// DefaultBufferSteps vertices.
func Buffer(center orb.Point, radiusKM float64) *geom.Polygon {
	return BufferSteps(center, radiusKM, DefaultBufferSteps)
}

// BufferSteps builds a closed counter-clockwise ring of steps vertices, each
// radiusKM from center along evenly spaced bearings. It returns nil for a
// non-positive or non-finite radius or fewer than three steps.
func BufferSteps(center orb.Point, radiusKM float64, steps int) *geom.Polygon {
	if !(radiusKM > 0) || math.IsInf(radiusKM, 0) || steps < 3 {
		return nil
	}

	meters := radiusKM * 1000
	ring := make([]geom.Coord, 0, steps+1)
	for i := 0; i < steps; i++ {
		bearing := -360 * float64(i) / float64(steps)
		p := orbgeo.PointAtBearingAndDistance(center, bearing, meters)
		ring = append(ring, geom.Coord{p[0], p[1]})
	}
	ring = append(ring, ring[0])

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil
	}
	return poly
}
