// Package crs provides coordinate reference system lookup, reprojection of
// feature collections and geometry area measurement.
package crs

import (
	"fmt"

	"github.com/twpayne/go-geom"

	"github.com/woozymasta/zonemap/internal/feature"
)

// CRS describes one supported coordinate reference system.
type CRS struct {
	forward    func(lon, lat float64) (x, y float64)
	Name       string
	Code       int
	Geographic bool
}

// Lookup resolves an EPSG code to a supported CRS.
//
// Supported codes: 4326 (WGS84 geodetic), 3857 (spherical Mercator) and
// the WGS84 UTM zones 32601-32660 (north) / 32701-32760 (south).
func Lookup(code int) (*CRS, error) {
	switch {
	case code == 4326:
		return &CRS{
			Code:       4326,
			Name:       "WGS 84",
			Geographic: true,
			forward:    func(lon, lat float64) (float64, float64) { return lon, lat },
		}, nil

	case code == 3857:
		return &CRS{
			Code:    3857,
			Name:    "WGS 84 / Pseudo-Mercator",
			forward: mercatorForward,
		}, nil

	case code >= 32601 && code <= 32660:
		zone := code - 32600
		return &CRS{
			Code:    code,
			Name:    fmt.Sprintf("WGS 84 / UTM zone %dN", zone),
			forward: utmForward(zone, false),
		}, nil

	case code >= 32701 && code <= 32760:
		zone := code - 32700
		return &CRS{
			Code:    code,
			Name:    fmt.Sprintf("WGS 84 / UTM zone %dS", zone),
			forward: utmForward(zone, true),
		}, nil
	}

	return nil, fmt.Errorf("unsupported EPSG code %d", code)
}

// Transform reprojects a geodetic collection into the target CRS.
// A matching source and target code is an identity. Reprojecting between two
// projected systems is not supported.
func Transform(col *feature.Collection, code int) (*feature.Collection, error) {
	if col.EPSG == code {
		return col.Clone(), nil
	}

	src, err := Lookup(col.EPSG)
	if err != nil {
		return nil, fmt.Errorf("source CRS: %w", err)
	}
	dst, err := Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("target CRS: %w", err)
	}

	if !src.Geographic {
		return nil, fmt.Errorf("transform from projected EPSG:%d is not supported", src.Code)
	}

	out := col.Clone()
	out.EPSG = code
	for i, f := range out.Features {
		if f.Geometry == nil {
			continue
		}
		g, err := applyXY(f.Geometry, dst.forward)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		g, err = geom.SetSRID(g, code)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out.Features[i].Geometry = g
	}

	return out, nil
}

// applyXY rebuilds a geometry with every XY pair passed through fn.
// Extra dimensions (Z, M) are carried through untouched.
func applyXY(g geom.T, fn func(x, y float64) (float64, float64)) (geom.T, error) {
	layout := g.Layout()
	stride := layout.Stride()

	src := g.FlatCoords()
	coords := make([]float64, len(src))
	copy(coords, src)
	for i := 0; i+1 < len(coords); i += stride {
		coords[i], coords[i+1] = fn(coords[i], coords[i+1])
	}

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, coords), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, coords), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, coords), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, coords, t.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, coords, t.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(layout, coords, t.Endss()), nil
	}

	return nil, fmt.Errorf("unsupported geometry type %T", g)
}

// AddArea derives an area attribute for every feature. Projected collections
// get planar area in squared CRS units, geodetic collections get geodesic
// area in square meters. The value is divided by divisor before storing.
func AddArea(col *feature.Collection, name string, divisor float64) (*feature.Collection, error) {
	if name == "" {
		name = "area"
	}
	if divisor == 0 {
		divisor = 1
	}

	c, err := Lookup(col.EPSG)
	if err != nil {
		return nil, err
	}

	out := col.Clone()
	for i, f := range out.Features {
		if f.Geometry == nil {
			continue
		}

		var area float64
		if c.Geographic {
			area, err = GeodesicArea(f.Geometry)
		} else {
			area, err = PlanarArea(f.Geometry)
		}
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		out.Features[i].Properties[name] = area / divisor
	}

	return out, nil
}
