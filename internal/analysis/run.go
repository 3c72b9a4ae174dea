package analysis

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/proximity-cli/internal/geo"
	"github.com/sells-group/proximity-cli/internal/model"
)

// Datasets maps each category to its resolved feature collection. A missing
// or nil entry is treated as an empty collection.
type Datasets map[model.Category]*model.FeatureCollection

// Get returns the collection for c, or an empty collection.
func (d Datasets) Get(c model.Category) *model.FeatureCollection {
	if fc := d[c]; fc != nil {
		return fc
	}
	return model.EmptyCollection()
}

// Engine runs every category analyzer over one subject. The zero value is
// ready to use; it keeps no state between calls.
type Engine struct {
	// BufferSteps is the vertex count of the buffer ring. Zero means
	// geo.DefaultBufferSteps.
	BufferSteps int
}

// Run analyzes subject with a zero-value Engine.
func Run(subject model.Subject, radiusKM float64, ds Datasets) *model.ResultBundle {
	var e Engine
	return e.Run(subject, radiusKM, ds)
}

// Run produces a fresh ResultBundle for subject. The buffer is built once
// and shared by all area categories. An invalid radius yields empty results
// and zero counts for every category.
func (e Engine) Run(subject model.Subject, radiusKM float64, ds Datasets) *model.ResultBundle {
	b := &model.ResultBundle{
		Subject:  subject,
		RadiusKM: radiusKM,
		Results:  make(map[model.Category][]model.ProximityResult, len(model.Categories)),
		Counts:   make(map[model.Category]int, len(model.Categories)),
	}

	if ValidRadius(radiusKM) {
		steps := e.BufferSteps
		if steps <= 0 {
			steps = geo.DefaultBufferSteps
		}
		b.Buffer = geo.BufferSteps(subject.Point(), radiusKM, steps)
	}

	for _, c := range model.Categories {
		res := Analyze(c, subject, radiusKM, b.Buffer, ds.Get(c))
		b.Results[c] = res
		b.Counts[c] = len(res)
	}
	return b
}

// Analyze dispatches to the analyzer for the kind of category c.
func Analyze(c model.Category, subject model.Subject, radiusKM float64, buffer *geom.Polygon, fc *model.FeatureCollection) []model.ProximityResult {
	switch c.Kind() {
	case model.KindPoint:
		return AnalyzePlants(subject, radiusKM, fc)
	case model.KindLine:
		return AnalyzeLines(subject, radiusKM, fc)
	case model.KindRepresentative:
		return AnalyzeRepresentative(c, subject, radiusKM, fc)
	case model.KindArea:
		return AnalyzeAreas(c, subject, radiusKM, buffer, fc)
	default:
		return []model.ProximityResult{}
	}
}
