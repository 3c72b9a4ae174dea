package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/proximity-cli/internal/model"
)

// DecodeShapefile reads a shapefile and its DBF attributes. Coordinates are
// taken as lon/lat. Null and unsupported shapes are dropped and counted in
// skipped.
func DecodeShapefile(shpPath string) (fc *model.FeatureCollection, skipped int, err error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "dataset: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	fc = model.EmptyCollection()
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(model.Properties, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				props[name] = nil
				continue
			}
			props[name] = val
		}
		fc.Features = append(fc.Features, model.Feature{Geometry: g, Properties: props})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return fc, skipped, nil
}

// shapeToGeom converts a go-shp shape to go-geom. It returns nil for shapes
// without a usable geometry.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		return geom.NewMultiPointFlat(geom.XY, pointsFlat(s.Points))
	case *shp.PolyLine:
		return polyLineToGeom(splitParts(s.Parts, s.Points))
	case *shp.Polygon:
		return polygonToGeom(splitParts(s.Parts, s.Points))
	default:
		return nil
	}
}

// splitParts slices a shape's point list at its part offsets.
func splitParts(parts []int32, points []shp.Point) [][]shp.Point {
	out := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(points)) {
			continue
		}
		out = append(out, points[start:end])
	}
	return out
}

func polyLineToGeom(parts [][]shp.Point) geom.T {
	var lines [][]geom.Coord
	for _, p := range parts {
		if len(p) >= 2 {
			lines = append(lines, toCoords(p))
		}
	}
	switch len(lines) {
	case 0:
		return nil
	case 1:
		return geom.NewLineString(geom.XY).MustSetCoords(lines[0])
	default:
		return geom.NewMultiLineString(geom.XY).MustSetCoords(lines)
	}
}

// polygonToGeom groups rings into polygons. Clockwise rings start a new
// polygon; counter-clockwise rings are holes of the polygon before them.
func polygonToGeom(parts [][]shp.Point) geom.T {
	var polys [][][]geom.Coord
	for _, p := range parts {
		if len(p) < 4 {
			continue
		}
		ring := toCoords(p)
		if len(polys) > 0 && xy.IsRingCounterClockwise(geom.XY, pointsFlat(p)) {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, [][]geom.Coord{ring})
	}
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return geom.NewPolygon(geom.XY).MustSetCoords(polys[0])
	default:
		return geom.NewMultiPolygon(geom.XY).MustSetCoords(polys)
	}
}

func toCoords(points []shp.Point) []geom.Coord {
	coords := make([]geom.Coord, len(points))
	for i, p := range points {
		coords[i] = geom.Coord{p.X, p.Y}
	}
	return coords
}

func pointsFlat(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
