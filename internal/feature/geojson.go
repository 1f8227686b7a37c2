package feature

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSON serializes the collection as an RFC 7946 FeatureCollection.
func (c *Collection) GeoJSON() ([]byte, error) {
	fc := geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(c.Features)),
	}

	for _, f := range c.Features {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}

	return json.Marshal(&fc)
}

// WriteGeoJSON writes the collection to a file.
func (c *Collection) WriteGeoJSON(path string) error {
	data, err := c.GeoJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// FromGeoJSON parses an RFC 7946 FeatureCollection. GeoJSON coordinates are
// geodetic, so the collection is tagged EPSG:4326.
func FromGeoJSON(data []byte) (*Collection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	col := NewCollection(4326)
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		col.Append(f.Geometry, f.Properties)
	}

	return col, nil
}

// ReadGeoJSON loads a feature collection from a local GeoJSON file.
func ReadGeoJSON(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromGeoJSON(data)
}
