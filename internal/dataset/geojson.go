package dataset

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/proximity-cli/internal/model"
)

type rawEnvelope struct {
	Type       string           `json:"type"`
	Features   []rawFeature     `json:"features"`
	Geometry   json.RawMessage  `json:"geometry"`
	Properties model.Properties `json:"properties"`
}

type rawFeature struct {
	Geometry   json.RawMessage  `json:"geometry"`
	Properties model.Properties `json:"properties"`
}

// DecodeGeoJSON parses a FeatureCollection or a single Feature. Features with
// null or undecodable geometry are dropped and counted in skipped; a
// document that is not GeoJSON at all is an error.
func DecodeGeoJSON(r io.Reader) (fc *model.FeatureCollection, skipped int, err error) {
	var env rawEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, 0, eris.Wrap(err, "dataset: decode geojson")
	}

	var raws []rawFeature
	switch env.Type {
	case "FeatureCollection":
		raws = env.Features
	case "Feature":
		raws = []rawFeature{{Geometry: env.Geometry, Properties: env.Properties}}
	default:
		return nil, 0, eris.Errorf("dataset: unsupported geojson type %q", env.Type)
	}

	fc = &model.FeatureCollection{Features: make([]model.Feature, 0, len(raws))}
	for _, raw := range raws {
		g, ok := decodeGeometry(raw.Geometry)
		if !ok {
			skipped++
			continue
		}
		props := raw.Properties
		if props == nil {
			props = model.Properties{}
		}
		fc.Features = append(fc.Features, model.Feature{Geometry: g, Properties: props})
	}
	return fc, skipped, nil
}

func decodeGeometry(raw json.RawMessage) (geom.T, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil || g == nil {
		return nil, false
	}
	return g, true
}

// EncodeGeometry renders g as a GeoJSON geometry object.
func EncodeGeometry(g geom.T) (json.RawMessage, error) {
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: encode geojson")
	}
	return data, nil
}
