package analysis

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/proximity-cli/internal/geo"
	"github.com/sells-group/proximity-cli/internal/model"
)

// DefaultScanRadiusKM is the radius of a quick scan.
const DefaultScanRadiusKM = 50.0

// ScanSummary condenses the plants around a subject into a count and a
// combined capacity.
type ScanSummary struct {
	RadiusKM   float64 `json:"radius_km"`
	Count      int     `json:"count"`
	CapacityMW float64 `json:"capacity_mw"`
}

// QuickScan counts Point plants within radiusKM of subject and sums their
// operating and authorized capacity. It does not exclude the subject's own
// record.
func QuickScan(subject model.Subject, radiusKM float64, plants *model.FeatureCollection) ScanSummary {
	s := ScanSummary{RadiusKM: radiusKM}
	if !ValidRadius(radiusKM) {
		return s
	}

	center := subject.Point()
	for i := 0; i < plants.Len(); i++ {
		f := &plants.Features[i]
		pt, ok := f.Geometry.(*geom.Point)
		if !ok || pt.Empty() {
			continue
		}
		if !within(geo.Distance(center, geo.RepresentativePoint(pt)), radiusKM) {
			continue
		}
		s.Count++
		s.CapacityMW += PlantCapacityMW(f.Properties)
	}
	return s
}
