package raster

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testGrid builds a 4x4 gray raster where the value of cell (col, row) is
// row*4+col, georeferenced with cell size 1 and its lower-left corner at
// the origin (top-left cell center at (0.5, 3.5)).
func testGrid() *Raster {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			img.SetGray(col, row, color.Gray{Y: uint8(row*4 + col)})
		}
	}
	return &Raster{
		img:    img,
		band:   1,
		a:      1,
		e:      -1,
		c:      0.5,
		f:      3.5,
		EPSG:   4326,
		width:  4,
		height: 4,
	}
}

func TestWorldFilePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data.tif", "data.tfw"},
		{"grid.png", "grid.pgw"},
		{"dem.jpeg", "dem.wld"},
		{"noext", "noext.wld"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, worldFilePath(tt.in), "input %q", tt.in)
	}
}

func TestOpenWithWorldFile(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "grid.png")
	wfPath := filepath.Join(dir, "grid.pgw")

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 2, color.Gray{Y: 42})

	fd, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fd, img))
	require.NoError(t, fd.Close())

	require.NoError(t, os.WriteFile(wfPath, []byte("1.0\n0.0\n0.0\n-1.0\n0.5\n3.5\n"), 0644))

	r, err := Open(imgPath, Options{EPSG: 4326})
	require.NoError(t, err)

	w, h := r.Size()
	require.Equal(t, 4, w)
	require.Equal(t, 4, h)
	require.Equal(t, 4326, r.EPSG)

	x, y := r.CellCenter(0, 0)
	require.Equal(t, 0.5, x)
	require.Equal(t, 3.5, y)

	v, ok := r.Value(1, 2)
	require.True(t, ok)
	require.Equal(t, 42.0, v)
}

func TestOpenExplicitTransform(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "grid.png")

	fd, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(fd, image.NewGray(image.Rect(0, 0, 2, 2))))
	require.NoError(t, fd.Close())

	r, err := Open(imgPath, Options{Transform: []float64{10, 0, 0, -10, 100, 200}})
	require.NoError(t, err)

	x, y := r.CellCenter(1, 1)
	require.Equal(t, 110.0, x)
	require.Equal(t, 190.0, y)

	// Without a transform and without a sidecar the open fails.
	_, err = Open(imgPath, Options{})
	require.Error(t, err)
}

func TestValueBounds(t *testing.T) {
	r := testGrid()

	v, ok := r.Value(3, 3)
	require.True(t, ok)
	require.Equal(t, 15.0, v)

	_, ok = r.Value(-1, 0)
	require.False(t, ok)
	_, ok = r.Value(4, 0)
	require.False(t, ok)
	_, ok = r.Value(0, 4)
	require.False(t, ok)
}

func TestValueNoData(t *testing.T) {
	r := testGrid()
	nodata := 5.0
	r.nodata = &nodata

	_, ok := r.Value(1, 1) // value 5
	require.False(t, ok)

	v, ok := r.Value(2, 1)
	require.True(t, ok)
	require.Equal(t, 6.0, v)
}

func TestValueRGBABands(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	r := &Raster{img: img, band: 2, a: 1, e: -1, width: 1, height: 1}
	v, ok := r.Value(0, 0)
	require.True(t, ok)
	require.Equal(t, 20.0, v)

	r.band = 3
	v, _ = r.Value(0, 0)
	require.Equal(t, 30.0, v)
}
