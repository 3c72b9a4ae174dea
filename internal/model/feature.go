// Package model defines the shared data types for the proximity engine.
package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// Properties holds the scalar attributes of a feature as loaded from its
// source. Values are strings, float64 numbers, bools or nil.
type Properties map[string]any

// String returns the property as trimmed text. Numbers are formatted without
// exponent; nil and missing keys yield "".
func (p Properties) String(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	return scalarString(v)
}

// First returns the first non-empty string value among keys.
func (p Properties) First(keys ...string) string {
	for _, k := range keys {
		if s := p.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the property as a number. Numeric strings are parsed;
// anything else reports ok=false.
func (p Properties) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// Feature is an immutable geometry/properties pair. Geometry is nil when the
// source record carried no usable geometry.
type Feature struct {
	Geometry   geom.T
	Properties Properties
}

// GeometryType returns the GeoJSON type name of the feature geometry, or ""
// when it has none.
func (f *Feature) GeometryType() string {
	switch f.Geometry.(type) {
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return ""
	}
}

// FeatureCollection is an ordered sequence of features. A nil collection
// pointer is never handed to the engine; use EmptyCollection instead.
type FeatureCollection struct {
	Features []Feature
}

// EmptyCollection returns a collection with no features.
func EmptyCollection() *FeatureCollection {
	return &FeatureCollection{Features: []Feature{}}
}

// Len returns the number of features, treating a nil collection as empty.
func (c *FeatureCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}
