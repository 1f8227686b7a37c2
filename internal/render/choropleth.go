package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/chai2010/webp"
	"github.com/twpayne/go-geom"
	"golang.org/x/image/vector"

	"github.com/woozymasta/zonemap/internal/feature"
)

// Options controls choropleth rendering.
type Options struct {
	Attribute   string
	Scheme      string
	NoDataColor string
	Ramp        []string
	Classes     int
	Width       int
}

// Map is a rendered choropleth with its classification, ready to encode.
type Map struct {
	Image          *image.RGBA
	Classification *Classification
}

const (
	padFraction = 0.02
	borderAlpha = 160
)

// Choropleth renders the collection's polygons filled by classed attribute
// values into an RGBA image fitted to the collection bounds.
func Choropleth(col *feature.Collection, opts Options) (*Map, error) {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Classes <= 0 {
		opts.Classes = 5
	}

	ext, err := col.Bounds()
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(col.Features))
	for i, f := range col.Features {
		if v, ok := f.Float(opts.Attribute); ok {
			values[i] = v
		} else {
			values[i] = math.NaN()
		}
	}

	cls, err := Classify(values, opts.Classes, opts.Scheme, opts.Ramp, opts.NoDataColor)
	if err != nil {
		return nil, fmt.Errorf("classify %q: %w", opts.Attribute, err)
	}

	dx := ext[2] - ext[0]
	dy := ext[3] - ext[1]
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("degenerate collection extent")
	}

	pad := int(float64(opts.Width) * padFraction)
	scale := float64(opts.Width-2*pad) / dx
	height := int(math.Ceil(dy*scale)) + 2*pad

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, height))

	toPixel := func(x, y float64) (float32, float32) {
		px := (x-ext[0])*scale + float64(pad)
		py := float64(height) - ((y-ext[1])*scale + float64(pad))
		return float32(px), float32(py)
	}

	border := color.NRGBA{R: 40, G: 40, B: 40, A: borderAlpha}
	for i, f := range col.Features {
		rings, err := geometryRings(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		fill := cls.ColorFor(values[i])
		fillRings(img, rings, toPixel, fill)
		for _, ring := range rings {
			strokeRing(img, ring, toPixel, border)
		}
	}

	return &Map{Image: img, Classification: cls}, nil
}

// EncodePNG writes the map as PNG.
func (m *Map) EncodePNG(w io.Writer) error {
	return png.Encode(w, m.Image)
}

// EncodeWebP writes the map as lossy WebP.
func (m *Map) EncodeWebP(w io.Writer, quality float32) error {
	if quality <= 0 {
		quality = 85
	}
	return webp.Encode(w, m.Image, &webp.Options{Lossless: false, Quality: quality})
}

func geometryRings(g geom.T) ([][]geom.Coord, error) {
	var rings [][]geom.Coord
	switch t := g.(type) {
	case *geom.Polygon:
		rings = polygonDrawRings(t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			rings = append(rings, polygonDrawRings(t.Polygon(i))...)
		}
	default:
		return nil, fmt.Errorf("choropleth requires polygonal geometry, got %T", g)
	}
	return rings, nil
}

// polygonDrawRings returns rings oriented so that holes wind opposite to the
// shell, which makes the non-zero fill rule cut them out.
func polygonDrawRings(p *geom.Polygon) [][]geom.Coord {
	var rings [][]geom.Coord
	var shellCCW bool

	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ccw := ringWinding(coords) > 0
		if i == 0 {
			shellCCW = ccw
		} else if ccw == shellCCW {
			coords = reverseCoords(coords)
		}
		rings = append(rings, coords)
	}
	return rings
}

func ringWinding(coords []geom.Coord) float64 {
	var sum float64
	for i := 0; i < len(coords)-1; i++ {
		sum += coords[i][0]*coords[i+1][1] - coords[i+1][0]*coords[i][1]
	}
	return sum
}

func reverseCoords(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}

func fillRings(img *image.RGBA, rings [][]geom.Coord, toPixel func(x, y float64) (float32, float32), fill color.NRGBA) {
	bounds := img.Bounds()
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	r.DrawOp = draw.Over

	for _, ring := range rings {
		if len(ring) < 4 {
			continue
		}
		px, py := toPixel(ring[0][0], ring[0][1])
		r.MoveTo(px, py)
		for _, c := range ring[1:] {
			px, py = toPixel(c[0], c[1])
			r.LineTo(px, py)
		}
		r.ClosePath()
	}

	r.Draw(img, bounds, image.NewUniform(fill), image.Point{})
}

// strokeRing plots a hairline outline with an integer line walk.
func strokeRing(img *image.RGBA, ring []geom.Coord, toPixel func(x, y float64) (float32, float32), c color.NRGBA) {
	for i := 0; i < len(ring)-1; i++ {
		x0, y0 := toPixel(ring[i][0], ring[i][1])
		x1, y1 := toPixel(ring[i+1][0], ring[i+1][1])
		plotLine(img, float64(x0), float64(y0), float64(x1), float64(y1), c)
	}
}

func plotLine(img *image.RGBA, x0, y0, x1, y1 float64, c color.NRGBA) {
	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0)))
	if steps == 0 {
		img.Set(int(x0), int(y0), c)
		return
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		img.Set(int(x0+(x1-x0)*t), int(y0+(y1-y0)*t), c)
	}
}
