// Package raster reads single-band values out of GeoTIFF files and computes
// zonal statistics over polygon features.
package raster

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	// raster decoders
	_ "golang.org/x/image/tiff"
	_ "image/png"
)

// Raster is a decoded, georeferenced grid of cell values.
//
// Georeferencing uses the ESRI world-file affine, mapping cell indices to
// the coordinates of cell centers:
//
//	x = c + col*a + row*b
//	y = f + col*d + row*e
type Raster struct {
	img    image.Image
	nodata *float64
	band   int

	a, d, b, e, c, f float64

	// EPSG tags the raster's CRS so callers can verify alignment.
	EPSG int

	width, height int
}

// Options controls how a raster file is opened.
type Options struct {
	NoData *float64

	// WorldFile overrides the default sidecar path (input with .tfw extension).
	WorldFile string

	// Transform is an explicit affine in world-file line order
	// [a, d, b, e, c, f]; it takes precedence over any world file.
	Transform []float64

	// Band selects the sampled channel for multi-channel images (1-4).
	Band int

	EPSG int
}

// Open decodes a raster file and attaches its georeference.
func Open(path string, opts Options) (*Raster, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fd.Close() }()

	img, format, err := image.Decode(bufio.NewReader(fd))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	_ = format

	r := &Raster{
		img:    img,
		nodata: opts.NoData,
		band:   opts.Band,
		EPSG:   opts.EPSG,
		width:  img.Bounds().Dx(),
		height: img.Bounds().Dy(),
	}
	if r.band <= 0 {
		r.band = 1
	}
	if r.EPSG == 0 {
		r.EPSG = 4326
	}

	switch {
	case len(opts.Transform) == 6:
		t := opts.Transform
		r.a, r.d, r.b, r.e, r.c, r.f = t[0], t[1], t[2], t[3], t[4], t[5]
	default:
		wf := opts.WorldFile
		if wf == "" {
			wf = worldFilePath(path)
		}
		if err := r.readWorldFile(wf); err != nil {
			return nil, err
		}
	}

	if r.a == 0 || r.e == 0 {
		return nil, fmt.Errorf("degenerate georeference (zero cell size)")
	}

	return r, nil
}

// Size returns the grid dimensions in cells.
func (r *Raster) Size() (width, height int) {
	return r.width, r.height
}

// CellCenter returns world coordinates of the center of cell (col, row).
func (r *Raster) CellCenter(col, row int) (x, y float64) {
	fc, fr := float64(col), float64(row)
	return r.c + fc*r.a + fr*r.b, r.f + fc*r.d + fr*r.e
}

// Value samples the configured band at cell (col, row). The second return
// is false for out-of-grid cells and nodata cells.
func (r *Raster) Value(col, row int) (float64, bool) {
	if col < 0 || row < 0 || col >= r.width || row >= r.height {
		return 0, false
	}

	b := r.img.Bounds()
	px, py := b.Min.X+col, b.Min.Y+row

	var v float64
	switch img := r.img.(type) {
	case *image.Gray:
		v = float64(img.GrayAt(px, py).Y)
	case *image.Gray16:
		v = float64(img.Gray16At(px, py).Y)
	default:
		cr, cg, cb, ca := r.img.At(px, py).RGBA()
		channels := [4]float64{
			float64(cr >> 8),
			float64(cg >> 8),
			float64(cb >> 8),
			float64(ca >> 8),
		}
		idx := r.band - 1
		if idx < 0 || idx > 3 {
			idx = 0
		}
		v = channels[idx]
	}

	if r.nodata != nil && v == *r.nodata {
		return 0, false
	}
	return v, true
}

// worldFilePath derives the sidecar path: data.tif -> data.tfw.
func worldFilePath(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext := path[i:]
		if len(ext) == 4 {
			// .tif -> .tfw convention: first, last letter of the extension + w
			return path[:i+1] + string(ext[1]) + string(ext[3]) + "w"
		}
		return path[:i] + ".wld"
	}
	return path + ".wld"
}

// readWorldFile parses the six affine parameters, one per line.
func (r *Raster) readWorldFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("world file: %w", err)
	}

	var vals []float64
	for _, line := range strings.Fields(string(data)) {
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return fmt.Errorf("world file %s: bad value %q", path, line)
		}
		vals = append(vals, v)
	}
	if len(vals) < 6 {
		return fmt.Errorf("world file %s: expected 6 parameters, got %d", path, len(vals))
	}

	r.a, r.d, r.b, r.e, r.c, r.f = vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]
	return nil
}
