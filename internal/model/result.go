package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// ProximityResult is one feature found near the subject.
//
// DistanceKM is finite and non-negative for every result the engine returns.
// Intersects is only meaningful for area categories; when set, DistanceKM is 0.
type ProximityResult struct {
	Feature    *Feature `json:"-"`
	Index      int      `json:"index"`
	Name       string   `json:"name"`
	Permit     string   `json:"permit,omitempty"`
	DistanceKM float64  `json:"distance_km"`
	Intersects bool     `json:"intersects,omitempty"`
}

// ResultBundle is the complete output of one analysis call. It is rebuilt on
// every call and never updated in place.
type ResultBundle struct {
	Subject  Subject                        `json:"subject"`
	RadiusKM float64                        `json:"radius_km"`
	Buffer   *geom.Polygon                  `json:"-"`
	Results  map[Category][]ProximityResult `json:"results"`
	Counts   map[Category]int               `json:"counts"`
}

// Total returns the number of results across all categories.
func (b *ResultBundle) Total() int {
	n := 0
	for _, c := range b.Counts {
		n += c
	}
	return n
}

// AnalysisRun is a recorded analysis, kept by the run log.
type AnalysisRun struct {
	ID        string                         `json:"id"`
	Subject   Subject                        `json:"subject"`
	RadiusKM  float64                        `json:"radius_km"`
	Counts    map[Category]int               `json:"counts"`
	Results   map[Category][]ProximityResult `json:"results,omitempty"`
	Buffer    *geom.Polygon                  `json:"-"`
	CreatedAt time.Time                      `json:"created_at"`
}

// NewAnalysisRun captures a bundle for the run log. ID and CreatedAt are
// assigned by the store.
func NewAnalysisRun(b *ResultBundle) AnalysisRun {
	return AnalysisRun{
		Subject:  b.Subject,
		RadiusKM: b.RadiusKM,
		Counts:   b.Counts,
		Results:  b.Results,
		Buffer:   b.Buffer,
	}
}
