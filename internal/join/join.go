// Package join performs spatial containment joins between point and polygon
// feature collections.
package join

import (
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geom"

	"github.com/woozymasta/zonemap/internal/feature"
)

// rtreego rejects zero-size rectangles, so degenerate extents are padded.
const minExtent = 1e-12

type polygonEntry struct {
	feat *feature.Feature
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *polygonEntry) Bounds() rtreego.Rect {
	return e.rect
}

// Within joins every point in points against the polygons collection using
// geometric containment. Matched points gain the containing polygon's
// attributes; on a name collision the polygon attribute is prefixed.
// Points outside every polygon pass through unchanged (left join).
//
// Both collections must share a CRS.
func Within(points, polygons *feature.Collection, prefix string) (*feature.Collection, error) {
	if !points.SameCRS(polygons) {
		return nil, fmt.Errorf("CRS mismatch: points EPSG:%d, polygons EPSG:%d",
			points.EPSG, polygons.EPSG)
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i := range polygons.Features {
		f := &polygons.Features[i]
		rect, err := boundsRect(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		tree.Insert(&polygonEntry{feat: f, rect: rect})
	}

	out := points.Clone()
	for i := range out.Features {
		pt, ok := out.Features[i].Geometry.(*geom.Point)
		if !ok {
			return nil, fmt.Errorf("point %d: expected Point geometry, got %T",
				i, out.Features[i].Geometry)
		}
		x, y := pt.X(), pt.Y()

		probe, _ := rtreego.NewRect(rtreego.Point{x, y}, []float64{minExtent, minExtent})
		for _, cand := range tree.SearchIntersect(probe) {
			entry := cand.(*polygonEntry)
			if !containsPoint(entry.feat.Geometry, x, y) {
				continue
			}

			for k, v := range entry.feat.Properties {
				name := k
				if _, exists := out.Features[i].Properties[name]; exists {
					name = prefix + k
				}
				out.Features[i].Properties[name] = v
			}
			break
		}
	}

	return out, nil
}

func boundsRect(g geom.T) (rtreego.Rect, error) {
	if g == nil {
		return rtreego.Rect{}, fmt.Errorf("nil geometry")
	}

	b := g.Bounds()
	dx := b.Max(0) - b.Min(0)
	dy := b.Max(1) - b.Min(1)
	if dx < minExtent {
		dx = minExtent
	}
	if dy < minExtent {
		dy = minExtent
	}

	return rtreego.NewRect(rtreego.Point{b.Min(0), b.Min(1)}, []float64{dx, dy})
}

// containsPoint refines an R-tree candidate with ray casting against the
// polygon rings. Holes are handled by even-odd accumulation.
func containsPoint(g geom.T, x, y float64) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, x, y)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), x, y) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, x, y float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !pointInRing(x, y, p.LinearRing(0).Coords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if pointInRing(x, y, p.LinearRing(i).Coords()) {
			return false
		}
	}
	return true
}

// pointInRing checks containment with the ray casting algorithm.
func pointInRing(x, y float64, ring []geom.Coord) bool {
	if len(ring) < 4 {
		return false
	}

	inside := false
	j := len(ring) - 2
	for i := 0; i < len(ring)-1; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if ((yi > y) != (yj > y)) &&
			(x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}
	return inside
}
