package join

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/woozymasta/zonemap/internal/feature"
)

func square(x0, y0, size float64) *geom.Polygon {
	p := geom.NewPolygon(geom.XY)
	p.Push(geom.NewLinearRing(geom.XY).MustSetCoords([]geom.Coord{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}))
	return p
}

func testPolygons() *feature.Collection {
	polygons := feature.NewCollection(4326)
	polygons.Append(square(0, 0, 1), map[string]any{"name": "A", "pop": 10})
	polygons.Append(square(2, 0, 1), map[string]any{"name": "B", "pop": 20})
	return polygons
}

func TestWithin(t *testing.T) {
	points := feature.NewCollection(4326)
	points.Append(geom.NewPointFlat(geom.XY, []float64{0.5, 0.5}), map[string]any{"name": "p1"})
	points.Append(geom.NewPointFlat(geom.XY, []float64{2.5, 0.5}), map[string]any{"name": "p2"})
	points.Append(geom.NewPointFlat(geom.XY, []float64{5, 5}), map[string]any{"name": "p3"})

	out, err := Within(points, testPolygons(), "zone_")
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	// Matched points gain polygon attributes; colliding names get the prefix.
	require.Equal(t, 10, out.Features[0].Properties["pop"])
	require.Equal(t, "A", out.Features[0].Properties["zone_name"])
	require.Equal(t, "p1", out.Features[0].Properties["name"])

	require.Equal(t, 20, out.Features[1].Properties["pop"])
	require.Equal(t, "B", out.Features[1].Properties["zone_name"])

	// Unmatched points pass through unchanged.
	_, ok := out.Features[2].Properties["pop"]
	require.False(t, ok)
	require.Equal(t, "p3", out.Features[2].Properties["name"])
}

func TestWithinLeavesInputsAlone(t *testing.T) {
	points := feature.NewCollection(4326)
	points.Append(geom.NewPointFlat(geom.XY, []float64{0.5, 0.5}), map[string]any{"name": "p1"})

	_, err := Within(points, testPolygons(), "zone_")
	require.NoError(t, err)

	_, ok := points.Features[0].Properties["pop"]
	require.False(t, ok)
}

func TestWithinHole(t *testing.T) {
	donut := geom.NewPolygon(geom.XY)
	donut.Push(geom.NewLinearRing(geom.XY).MustSetCoords([]geom.Coord{
		{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0},
	}))
	donut.Push(geom.NewLinearRing(geom.XY).MustSetCoords([]geom.Coord{
		{1, 1}, {1, 3}, {3, 3}, {3, 1}, {1, 1},
	}))

	polygons := feature.NewCollection(4326)
	polygons.Append(donut, map[string]any{"zone": "ring"})

	points := feature.NewCollection(4326)
	points.Append(geom.NewPointFlat(geom.XY, []float64{0.5, 0.5}), nil)
	points.Append(geom.NewPointFlat(geom.XY, []float64{2, 2}), nil)

	out, err := Within(points, polygons, "zone_")
	require.NoError(t, err)

	require.Equal(t, "ring", out.Features[0].Properties["zone"])
	_, ok := out.Features[1].Properties["zone"]
	require.False(t, ok, "point inside the hole must not match")
}

func TestWithinMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 1)))
	require.NoError(t, mp.Push(square(10, 10, 1)))

	polygons := feature.NewCollection(4326)
	polygons.Append(mp, map[string]any{"zone": "split"})

	points := feature.NewCollection(4326)
	points.Append(geom.NewPointFlat(geom.XY, []float64{10.5, 10.5}), nil)

	out, err := Within(points, polygons, "zone_")
	require.NoError(t, err)
	require.Equal(t, "split", out.Features[0].Properties["zone"])
}

func TestWithinCRSMismatch(t *testing.T) {
	points := feature.NewCollection(3857)
	points.Append(geom.NewPointFlat(geom.XY, []float64{0, 0}), nil)

	_, err := Within(points, testPolygons(), "zone_")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CRS mismatch")
}

func TestWithinNonPointGeometry(t *testing.T) {
	points := feature.NewCollection(4326)
	points.Append(square(0, 0, 1), nil)

	_, err := Within(points, testPolygons(), "zone_")
	require.Error(t, err)
}
