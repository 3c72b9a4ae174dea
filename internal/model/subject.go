package model

import "github.com/paulmach/orb"

// Subject is the candidate project location being analyzed. Permit and
// Operator are identity keys used only to exclude the subject's own record
// from the plants category.
type Subject struct {
	Name     string  `json:"name,omitempty"`
	Lon      float64 `json:"lon"`
	Lat      float64 `json:"lat"`
	Permit   string  `json:"permit,omitempty"`
	Operator string  `json:"operator,omitempty"`
}

// Point returns the subject location as a lon/lat point.
func (s Subject) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}
