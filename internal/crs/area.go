package crs

import (
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

// Mean Earth radius in meters, used to scale steradian areas.
const earthRadius = 6371008.8

// PlanarArea computes the area of a (multi)polygon in squared CRS units.
// Holes are subtracted.
func PlanarArea(g geom.T) (float64, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonArea(t), nil
	case *geom.MultiPolygon:
		var sum float64
		for i := 0; i < t.NumPolygons(); i++ {
			sum += polygonArea(t.Polygon(i))
		}
		return sum, nil
	}
	return 0, fmt.Errorf("planar area requires polygonal geometry, got %T", g)
}

func polygonArea(p *geom.Polygon) float64 {
	var area float64
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := ringArea(p.LinearRing(i).Coords())
		if i == 0 {
			area += abs(ring)
		} else {
			area -= abs(ring)
		}
	}
	return area
}

// ringArea is the signed shoelace area; positive for counterclockwise rings.
func ringArea(coords []geom.Coord) float64 {
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// GeodesicArea computes the area of a geodetic (multi)polygon in square
// meters on the WGS84 sphere.
func GeodesicArea(g geom.T) (float64, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return geodesicPolygonArea(t), nil
	case *geom.MultiPolygon:
		var sum float64
		for i := 0; i < t.NumPolygons(); i++ {
			sum += geodesicPolygonArea(t.Polygon(i))
		}
		return sum, nil
	}
	return 0, fmt.Errorf("geodesic area requires polygonal geometry, got %T", g)
}

func geodesicPolygonArea(p *geom.Polygon) float64 {
	var area float64
	for i := 0; i < p.NumLinearRings(); i++ {
		steradians := loopArea(p.LinearRing(i).Coords())
		if i == 0 {
			area += steradians
		} else {
			area -= steradians
		}
	}
	return area * earthRadius * earthRadius
}

func loopArea(coords []geom.Coord) float64 {
	if len(coords) < 4 {
		return 0
	}

	// Drop the closing coordinate; s2 loops are implicitly closed.
	pts := make([]s2.Point, 0, len(coords)-1)
	for _, c := range coords[:len(coords)-1] {
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(c[1], c[0])))
	}

	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area()
}
