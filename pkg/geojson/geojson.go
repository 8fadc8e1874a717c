package geojson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	orbjson "github.com/paulmach/orb/geojson"
)

var geometryTypes = map[string]struct{}{
	"Point":              {},
	"MultiPoint":         {},
	"LineString":         {},
	"MultiLineString":    {},
	"Polygon":            {},
	"MultiPolygon":       {},
	"GeometryCollection": {},
}

// ValidateLocation checks a submission geo_location payload. The payload must be a JSON object. When it declares
// a GeoJSON type it has to decode as that type; any other object is treated as free-form location metadata
// (for example {"province": "...", "municipality": "..."}).
func ValidateLocation(raw []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("geo_location must be a JSON object: %w", err)
	}

	typeRaw, ok := probe["type"]
	if !ok {
		return nil
	}
	var kind string
	if err := json.Unmarshal(typeRaw, &kind); err != nil {
		return fmt.Errorf("geo_location type must be a string")
	}

	switch {
	case kind == "Feature":
		if _, err := orbjson.UnmarshalFeature(raw); err != nil {
			return fmt.Errorf("invalid geojson feature: %w", err)
		}
	case kind == "FeatureCollection":
		if _, err := orbjson.UnmarshalFeatureCollection(raw); err != nil {
			return fmt.Errorf("invalid geojson feature collection: %w", err)
		}
	default:
		if _, known := geometryTypes[kind]; !known {
			return nil
		}
		if _, err := ParseGeometry(raw); err != nil {
			return err
		}
	}
	return nil
}

// ParseGeometry decodes a bare GeoJSON geometry object.
func ParseGeometry(raw []byte) (orb.Geometry, error) {
	g, err := orbjson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid geojson geometry: %w", err)
	}
	if g.Coordinates == nil && len(g.Geometries) == 0 {
		return nil, fmt.Errorf("invalid geojson geometry: no coordinates")
	}
	return g.Geometry(), nil
}

// ReadFeatureCollection decodes a FeatureCollection document such as the boundary datasets.
func ReadFeatureCollection(r io.Reader) (*orbjson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feature collection: %w", err)
	}
	fc, err := orbjson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return fc, nil
}

// WKT renders a geometry as well-known text. A nil geometry renders as an empty string.
func WKT(g orb.Geometry) string {
	if g == nil {
		return ""
	}
	return wkt.MarshalString(g)
}
