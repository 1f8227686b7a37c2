package raster

import (
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/woozymasta/zonemap/internal/feature"
)

// Stats aggregates the raster cells covered by one polygon.
type Stats struct {
	Min    float64
	Max    float64
	Sum    float64
	Mean   float64
	StdDev float64
	Count  int
}

// statNames maps requested statistic names to property value extraction.
var statNames = map[string]func(Stats) float64{
	"min":    func(s Stats) float64 { return s.Min },
	"max":    func(s Stats) float64 { return s.Max },
	"sum":    func(s Stats) float64 { return s.Sum },
	"mean":   func(s Stats) float64 { return s.Mean },
	"stddev": func(s Stats) float64 { return s.StdDev },
}

// ZonalStats computes per-polygon summary statistics of raster cell values
// and merges them into a copy of the collection's properties under
// prefix+name. A cell belongs to a polygon when its center falls inside
// (even-odd rule, holes excluded).
//
// Polygons entirely outside the raster get count 0 and no other statistics.
func ZonalStats(col *feature.Collection, r *Raster, stats []string, prefix string) (*feature.Collection, error) {
	if col.EPSG != r.EPSG {
		return nil, fmt.Errorf("CRS mismatch: features EPSG:%d, raster EPSG:%d", col.EPSG, r.EPSG)
	}
	if r.b != 0 || r.d != 0 {
		return nil, fmt.Errorf("rotated rasters are not supported")
	}

	for _, name := range stats {
		if name == "count" {
			continue
		}
		if _, ok := statNames[name]; !ok {
			return nil, fmt.Errorf("unknown statistic %q", name)
		}
	}

	out := col.Clone()
	for i := range out.Features {
		rings, err := polygonRings(out.Features[i].Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		s := r.aggregate(rings)

		props := out.Features[i].Properties
		for _, name := range stats {
			if name == "count" {
				props[prefix+"count"] = s.Count
				continue
			}
			if s.Count > 0 {
				props[prefix+name] = statNames[name](s)
			}
		}
	}

	return out, nil
}

func polygonRings(g geom.T) ([][]geom.Coord, error) {
	var rings [][]geom.Coord
	switch t := g.(type) {
	case *geom.Polygon:
		for i := 0; i < t.NumLinearRings(); i++ {
			rings = append(rings, t.LinearRing(i).Coords())
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			for j := 0; j < p.NumLinearRings(); j++ {
				rings = append(rings, p.LinearRing(j).Coords())
			}
		}
	default:
		return nil, fmt.Errorf("zonal statistics require polygonal geometry, got %T", g)
	}
	return rings, nil
}

// aggregate scans the polygon row by row, filling between boundary
// crossings of each cell-center scanline.
func (r *Raster) aggregate(rings [][]geom.Coord) Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sumSq float64

	minX, minY, maxX, maxY := ringsBounds(rings)
	rowLo, rowHi := r.rowRange(minY, maxY)

	var xs []float64
	for row := rowLo; row <= rowHi; row++ {
		_, y := r.CellCenter(0, row)

		xs = xs[:0]
		for _, ring := range rings {
			for i := 0; i < len(ring)-1; i++ {
				y1, y2 := ring[i][1], ring[i+1][1]
				if (y1 > y) == (y2 > y) {
					continue
				}
				x1, x2 := ring[i][0], ring[i+1][0]
				xs = append(xs, x1+(y-y1)*(x2-x1)/(y2-y1))
			}
		}
		if len(xs) < 2 {
			continue
		}
		sort.Float64s(xs)

		for k := 0; k+1 < len(xs); k += 2 {
			x0, x1 := xs[k], xs[k+1]
			if x1 < minX || x0 > maxX {
				continue
			}
			for col := r.colAfter(x0); col < r.width; col++ {
				x, _ := r.CellCenter(col, row)
				if x >= x1 {
					break
				}
				v, ok := r.Value(col, row)
				if !ok {
					continue
				}

				s.Count++
				s.Sum += v
				sumSq += v * v
				if v < s.Min {
					s.Min = v
				}
				if v > s.Max {
					s.Max = v
				}
			}
		}
	}

	if s.Count > 0 {
		n := float64(s.Count)
		s.Mean = s.Sum / n
		variance := sumSq/n - s.Mean*s.Mean
		if variance > 0 {
			s.StdDev = math.Sqrt(variance)
		}
	} else {
		s.Min, s.Max = 0, 0
	}
	return s
}

// rowRange clamps a world-Y interval to grid rows.
func (r *Raster) rowRange(minY, maxY float64) (lo, hi int) {
	// e is negative for north-up rasters, so the Y order flips.
	r1 := (minY - r.f) / r.e
	r2 := (maxY - r.f) / r.e
	if r1 > r2 {
		r1, r2 = r2, r1
	}

	lo = int(math.Ceil(r1 - 0.5))
	hi = int(math.Floor(r2 + 0.5))
	if lo < 0 {
		lo = 0
	}
	if hi >= r.height {
		hi = r.height - 1
	}
	return lo, hi
}

// colAfter returns the first column whose center X is strictly greater
// than x.
func (r *Raster) colAfter(x float64) int {
	t := (x - r.c) / r.a
	col := int(math.Floor(t)) + 1
	if col < 0 {
		col = 0
	}
	return col
}

func ringsBounds(rings [][]geom.Coord) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, ring := range rings {
		for _, c := range ring {
			minX = math.Min(minX, c[0])
			minY = math.Min(minY, c[1])
			maxX = math.Max(maxX, c[0])
			maxY = math.Max(maxY, c[1])
		}
	}
	return minX, minY, maxX, maxY
}
