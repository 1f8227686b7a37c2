package dissolve

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geom"
)

type vertex struct {
	x, y int64
}

type edgeKey struct {
	a, b vertex
}

type edgeRec struct {
	// net directed traversals: +1 per a->b pass, -1 per b->a pass.
	// Zero means the segment is interior to the union.
	count int
}

type dirEdge struct {
	from, to vertex
}

// union merges a group of coverage polygons into a single Polygon or
// MultiPolygon by removing interior shared borders and stitching the
// surviving boundary back into rings.
func union(polys []*geom.Polygon, grid float64) (geom.T, error) {
	if len(polys) == 0 {
		return nil, fmt.Errorf("empty group")
	}
	if len(polys) == 1 {
		return polys[0], nil
	}

	edges := map[edgeKey]*edgeRec{}
	verts := map[vertex]geom.Coord{}

	for _, p := range polys {
		for r := 0; r < p.NumLinearRings(); r++ {
			coords := p.LinearRing(r).Coords()
			for i := 0; i < len(coords)-1; i++ {
				va := vertex{quantize(coords[i][0], grid), quantize(coords[i][1], grid)}
				vb := vertex{quantize(coords[i+1][0], grid), quantize(coords[i+1][1], grid)}
				if va == vb {
					continue
				}

				if _, ok := verts[va]; !ok {
					verts[va] = coords[i]
				}
				if _, ok := verts[vb]; !ok {
					verts[vb] = coords[i+1]
				}

				key, dir := canonical(va, vb)
				rec, ok := edges[key]
				if !ok {
					rec = &edgeRec{}
					edges[key] = rec
				}
				rec.count += dir
			}
		}
	}

	// Surviving directed edges form the union boundary.
	var boundary []dirEdge
	for key, rec := range edges {
		switch {
		case rec.count > 0:
			boundary = append(boundary, dirEdge{from: key.a, to: key.b})
		case rec.count < 0:
			boundary = append(boundary, dirEdge{from: key.b, to: key.a})
		}
	}
	if len(boundary) == 0 {
		return nil, fmt.Errorf("coverage boundary vanished, inputs may overlap")
	}

	// Deterministic stitching order.
	sort.Slice(boundary, func(i, j int) bool {
		a, b := boundary[i].from, boundary[j].from
		if a.x != b.x {
			return a.x < b.x
		}
		if a.y != b.y {
			return a.y < b.y
		}
		if boundary[i].to.x != boundary[j].to.x {
			return boundary[i].to.x < boundary[j].to.x
		}
		return boundary[i].to.y < boundary[j].to.y
	})

	rings, err := stitch(boundary)
	if err != nil {
		return nil, err
	}

	return assemble(rings, verts)
}

func canonical(a, b vertex) (edgeKey, int) {
	if a.x < b.x || (a.x == b.x && a.y < b.y) {
		return edgeKey{a, b}, 1
	}
	return edgeKey{b, a}, -1
}

// stitch walks the directed boundary edges into closed rings. Every vertex
// of a valid coverage boundary has equal in and out degree, so each walk
// terminates back at its start.
func stitch(boundary []dirEdge) ([][]vertex, error) {
	byStart := map[vertex][]int{}
	for i, e := range boundary {
		byStart[e.from] = append(byStart[e.from], i)
	}

	used := make([]bool, len(boundary))
	var rings [][]vertex

	for i := range boundary {
		if used[i] {
			continue
		}

		start := boundary[i].from
		ring := []vertex{start}
		cur := i

		for {
			used[cur] = true
			next := boundary[cur].to
			ring = append(ring, next)
			if next == start {
				break
			}

			found := -1
			for _, cand := range byStart[next] {
				if !used[cand] {
					found = cand
					break
				}
			}
			if found < 0 {
				return nil, fmt.Errorf("unclosed boundary ring at vertex (%d,%d)", next.x, next.y)
			}
			cur = found
		}

		if len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}

	if len(rings) == 0 {
		return nil, fmt.Errorf("no closed rings in boundary")
	}
	return rings, nil
}

type ringInfo struct {
	coords []geom.Coord
	area   float64 // signed
}

// assemble orients the stitched rings into shells and holes and nests holes
// into the smallest enclosing shell.
func assemble(rings [][]vertex, verts map[vertex]geom.Coord) (geom.T, error) {
	var shells, holes []ringInfo

	for _, ring := range rings {
		coords := make([]geom.Coord, len(ring))
		for i, v := range ring {
			c := verts[v]
			coords[i] = geom.Coord{c[0], c[1]}
		}

		area := signedArea(coords)
		if area > 0 {
			shells = append(shells, ringInfo{coords: coords, area: area})
		} else if area < 0 {
			holes = append(holes, ringInfo{coords: coords, area: area})
		}
	}

	if len(shells) == 0 {
		return nil, fmt.Errorf("boundary produced no shell rings")
	}

	// Smallest shells first so holes land in the tightest enclosure.
	sort.Slice(shells, func(i, j int) bool { return shells[i].area < shells[j].area })

	shellHoles := make([][][]geom.Coord, len(shells))
	for _, h := range holes {
		placed := false
		probe := interiorPoint(h.coords)
		for i := range shells {
			if pointInRing(probe[0], probe[1], shells[i].coords) {
				shellHoles[i] = append(shellHoles[i], h.coords)
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("hole ring not contained in any shell")
		}
	}

	if len(shells) == 1 {
		return buildPolygon(shells[0].coords, shellHoles[0]), nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := range shells {
		if err := mp.Push(buildPolygon(shells[i].coords, shellHoles[i])); err != nil {
			return nil, err
		}
	}
	return mp, nil
}

func buildPolygon(shell []geom.Coord, holes [][]geom.Coord) *geom.Polygon {
	p := geom.NewPolygon(geom.XY)
	p.Push(geom.NewLinearRing(geom.XY).MustSetCoords(shell))
	for _, h := range holes {
		p.Push(geom.NewLinearRing(geom.XY).MustSetCoords(h))
	}
	return p
}

// interiorPoint returns a point inside the ring: the midpoint of the first
// edge nudged toward the ring centroid.
func interiorPoint(coords []geom.Coord) geom.Coord {
	var cx, cy float64
	n := len(coords) - 1
	for i := 0; i < n; i++ {
		cx += coords[i][0]
		cy += coords[i][1]
	}
	cx /= float64(n)
	cy /= float64(n)

	mx := (coords[0][0] + coords[1][0]) / 2
	my := (coords[0][1] + coords[1][1]) / 2

	const nudge = 1e-7
	return geom.Coord{mx + (cx-mx)*nudge, my + (cy-my)*nudge}
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
