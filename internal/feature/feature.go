// Package feature holds the feature collection model shared by all pipeline stages.
package feature

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// DefaultGeometryColumn is the normalized name of the active geometry slot.
const DefaultGeometryColumn = "geometry"

// Feature pairs a geometry with a mapping of attribute name to value.
type Feature struct {
	Properties map[string]any
	Geometry   geom.T
}

// Collection is an ordered sequence of features sharing one CRS and one
// designated geometry column.
type Collection struct {
	GeometryColumn string
	EPSG           int
	Features       []Feature
}

// NewCollection creates an empty collection in the given CRS.
func NewCollection(epsg int) *Collection {
	return &Collection{
		GeometryColumn: DefaultGeometryColumn,
		EPSG:           epsg,
	}
}

// Append adds a feature to the collection.
func (c *Collection) Append(g geom.T, props map[string]any) {
	if props == nil {
		props = map[string]any{}
	}
	c.Features = append(c.Features, Feature{Geometry: g, Properties: props})
}

// Len returns the number of features.
func (c *Collection) Len() int {
	return len(c.Features)
}

// RenameGeometry changes the designated geometry column name.
func (c *Collection) RenameGeometry(name string) {
	if name == "" {
		name = DefaultGeometryColumn
	}
	c.GeometryColumn = name
}

// Clone returns a copy of the collection with copied property maps.
// Geometries are shared; pipeline stages never mutate them in place.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		GeometryColumn: c.GeometryColumn,
		EPSG:           c.EPSG,
		Features:       make([]Feature, len(c.Features)),
	}
	for i, f := range c.Features {
		props := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		out.Features[i] = Feature{Geometry: f.Geometry, Properties: props}
	}
	return out
}

// Bounds returns the envelope of all feature geometries as [minX, minY, maxX, maxY].
func (c *Collection) Bounds() ([4]float64, error) {
	var ext [4]float64
	if len(c.Features) == 0 {
		return ext, fmt.Errorf("empty collection has no bounds")
	}

	b := geom.NewBounds(geom.XY)
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		b.Extend(f.Geometry)
	}

	ext[0], ext[1] = b.Min(0), b.Min(1)
	ext[2], ext[3] = b.Max(0), b.Max(1)
	if ext[0] > ext[2] {
		return ext, fmt.Errorf("collection has no geometries")
	}
	return ext, nil
}

// SameCRS reports whether two collections can be combined without a transform.
func (c *Collection) SameCRS(other *Collection) bool {
	return c.EPSG == other.EPSG
}

// String returns the string value of an attribute, if present.
func (f Feature) String(key string) (string, bool) {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprintf("%v", s), true
	}
}

// Float returns the numeric value of an attribute, if present and numeric.
func (f Feature) Float(key string) (float64, bool) {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
