package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID of every stored buffer.
const SRID = 4326

// encodeBuffer converts a buffer polygon to EWKB. A nil polygon encodes as
// nil.
func encodeBuffer(p *geom.Polygon) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	g := geom.NewPolygonFlat(p.Layout(), p.FlatCoords(), p.Ends()).SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode buffer")
	}
	return data, nil
}

// decodeBuffer parses an EWKB polygon. Empty input decodes as nil.
func decodeBuffer(data []byte) (*geom.Polygon, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode buffer")
	}
	p, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("store: buffer is %T, want polygon", g)
	}
	return p, nil
}
