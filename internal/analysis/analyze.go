// Package analysis turns a subject, a radius and the category feature
// collections into ranked, filtered proximity results.
//
// Analyzers never mutate their input collections and never fail: features
// whose geometry cannot be measured are left out of the results.
package analysis

import (
	"cmp"
	"math"
	"slices"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/proximity-cli/internal/geo"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/resolve"
)

// ValidRadius reports whether r is a usable search radius in kilometers.
func ValidRadius(r float64) bool {
	return r > 0 && !math.IsInf(r, 1)
}

// AnalyzePlants returns Point features within radiusKM of the subject,
// excluding the subject's own record by permit number or operator name.
func AnalyzePlants(subject model.Subject, radiusKM float64, fc *model.FeatureCollection) []model.ProximityResult {
	results := []model.ProximityResult{}
	if !ValidRadius(radiusKM) || fc.Len() == 0 {
		return results
	}

	center := subject.Point()
	for i := range fc.Features {
		f := &fc.Features[i]
		pt, ok := f.Geometry.(*geom.Point)
		if !ok || pt.Empty() {
			continue
		}
		if isSelf(subject, f.Properties) {
			continue
		}
		d := geo.Distance(center, geo.RepresentativePoint(pt))
		if !within(d, radiusKM) {
			continue
		}
		results = append(results, model.ProximityResult{
			Feature:    f,
			Index:      i,
			Name:       DisplayName(model.CategoryPlants, f.Properties),
			Permit:     PlantPermit(f.Properties),
			DistanceKM: d,
		})
	}
	return sortResults(results)
}

// AnalyzeLines returns features whose line geometry passes within radiusKM
// of the subject.
func AnalyzeLines(subject model.Subject, radiusKM float64, fc *model.FeatureCollection) []model.ProximityResult {
	results := []model.ProximityResult{}
	if !ValidRadius(radiusKM) || fc.Len() == 0 {
		return results
	}

	center := subject.Point()
	for i := range fc.Features {
		f := &fc.Features[i]
		d := geo.DistanceToLine(center, f.Geometry)
		if !within(d, radiusKM) {
			continue
		}
		results = append(results, model.ProximityResult{
			Feature:    f,
			Index:      i,
			Name:       DisplayName(model.CategoryLines, f.Properties),
			DistanceKM: d,
		})
	}
	return sortResults(results)
}

// AnalyzeRepresentative measures each feature of category c by its
// representative point.
func AnalyzeRepresentative(c model.Category, subject model.Subject, radiusKM float64, fc *model.FeatureCollection) []model.ProximityResult {
	results := []model.ProximityResult{}
	if !ValidRadius(radiusKM) || fc.Len() == 0 {
		return results
	}

	center := subject.Point()
	for i := range fc.Features {
		f := &fc.Features[i]
		if f.Geometry == nil {
			continue
		}
		d := geo.Distance(center, geo.RepresentativePoint(f.Geometry))
		if !within(d, radiusKM) {
			continue
		}
		results = append(results, model.ProximityResult{
			Feature:    f,
			Index:      i,
			Name:       DisplayName(c, f.Properties),
			DistanceKM: d,
		})
	}
	return sortResults(results)
}

// AnalyzeAreas returns Polygon and MultiPolygon features of category c that
// overlap the buffer, with distance 0, or whose boundary lies within
// radiusKM of the subject.
func AnalyzeAreas(c model.Category, subject model.Subject, radiusKM float64, buffer *geom.Polygon, fc *model.FeatureCollection) []model.ProximityResult {
	results := []model.ProximityResult{}
	if !ValidRadius(radiusKM) || fc.Len() == 0 {
		return results
	}

	center := subject.Point()
	for i := range fc.Features {
		f := &fc.Features[i]
		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			continue
		}

		r := model.ProximityResult{
			Feature: f,
			Index:   i,
			Name:    DisplayName(c, f.Properties),
		}
		if geo.Intersects(buffer, f.Geometry) {
			r.Intersects = true
		} else {
			r.DistanceKM = geo.DistanceToPolygon(center, f.Geometry)
			if !within(r.DistanceKM, radiusKM) {
				continue
			}
		}
		results = append(results, r)
	}
	return sortResults(results)
}

func isSelf(subject model.Subject, p model.Properties) bool {
	return resolve.SameIdentity(subject.Permit, PlantPermit(p)) ||
		resolve.SameIdentity(subject.Operator, PlantOperator(p))
}

func within(d, radiusKM float64) bool {
	return geo.IsReachable(d) && d <= radiusKM
}

// sortResults orders by ascending distance, keeping collection order on ties.
func sortResults(results []model.ProximityResult) []model.ProximityResult {
	slices.SortStableFunc(results, func(a, b model.ProximityResult) int {
		return cmp.Compare(a.DistanceKM, b.DistanceKM)
	})
	return results
}
