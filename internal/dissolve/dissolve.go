// Package dissolve merges polygon features sharing an attribute value into
// unioned geometries.
//
// Inputs are expected to form a coverage: non-overlapping polygons whose
// shared borders are coordinate-identical (the usual shape of administrative
// boundary layers). A border segment traversed once in each direction by two
// members of a group is interior to the union and removed; the surviving
// segments are stitched back into rings.
package dissolve

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/woozymasta/zonemap/internal/feature"
)

// DefaultGrid is the coordinate snapping grid used to match shared borders.
const DefaultGrid = 1e-9

// Dissolve groups features by the string value of key and unions each
// group's geometries. The output carries the key plus the first-seen values
// of the keep attributes. Feature order follows first appearance of each
// key value.
func Dissolve(col *feature.Collection, key string, keep []string, grid float64) (*feature.Collection, error) {
	if grid <= 0 {
		grid = DefaultGrid
	}

	type group struct {
		props map[string]any
		polys []*geom.Polygon
	}

	var order []string
	groups := map[string]*group{}

	for i, f := range col.Features {
		val, ok := f.String(key)
		if !ok {
			return nil, fmt.Errorf("feature %d has no attribute %q", i, key)
		}

		polys, err := explode(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		g, ok := groups[val]
		if !ok {
			props := map[string]any{key: f.Properties[key]}
			for _, k := range keep {
				if v, has := f.Properties[k]; has {
					props[k] = v
				}
			}
			g = &group{props: props}
			groups[val] = g
			order = append(order, val)
		}
		g.polys = append(g.polys, polys...)
	}

	out := feature.NewCollection(col.EPSG)
	out.GeometryColumn = col.GeometryColumn

	for _, val := range order {
		g := groups[val]

		merged, err := union(g.polys, grid)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", val, err)
		}
		out.Append(merged, g.props)
	}

	return out, nil
}

// explode returns the polygons of a geometry with normalized ring
// orientation (shell counterclockwise, holes clockwise).
func explode(g geom.T) ([]*geom.Polygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{normalize(t)}, nil
	case *geom.MultiPolygon:
		polys := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, normalize(t.Polygon(i)))
		}
		return polys, nil
	case nil:
		return nil, fmt.Errorf("nil geometry")
	}
	return nil, fmt.Errorf("dissolve requires polygonal geometry, got %T", g)
}

func normalize(p *geom.Polygon) *geom.Polygon {
	rings := make([][]geom.Coord, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ccw := signedArea(coords) > 0
		if (i == 0 && !ccw) || (i > 0 && ccw) {
			coords = reverse(coords)
		}
		rings[i] = coords
	}

	out := geom.NewPolygon(geom.XY)
	for _, ring := range rings {
		out.Push(geom.NewLinearRing(geom.XY).MustSetCoords(xyOnly(ring)))
	}
	return out
}

func xyOnly(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[i] = geom.Coord{c[0], c[1]}
	}
	return out
}

func reverse(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

// signedArea is the shoelace area; positive for counterclockwise rings.
func signedArea(coords []geom.Coord) float64 {
	if len(coords) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(coords)-1; i++ {
		a, b := coords[i], coords[i+1]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}

func quantize(v, grid float64) int64 {
	return int64(math.Round(v / grid))
}
