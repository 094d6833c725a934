// Package geo encodes property coordinates for storage and lookup.
package geo

import (
	"github.com/mmcloughlin/geohash"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference used for stored points (WGS 84).
const SRID = 4326

// HashPrecision is the geohash length stored on properties (~5m cells).
const HashPrecision = 9

// Point is a WGS 84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// DefaultPoint is used when an address cannot be geocoded (downtown Los Angeles).
var DefaultPoint = Point{Lat: 34.0522, Lng: -118.2437}

// EncodePoint converts a coordinate to EWKB bytes with SRID 4326.
func EncodePoint(p Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}

// DecodePoint parses EWKB bytes produced by EncodePoint.
func DecodePoint(data []byte) (Point, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return Point{}, eris.Wrap(err, "geo: decode point")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return Point{}, eris.Errorf("geo: expected point, got %T", g)
	}
	return Point{Lat: pt.Y(), Lng: pt.X()}, nil
}

// Hash returns the geohash of a coordinate at HashPrecision.
func Hash(p Point) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, HashPrecision)
}
