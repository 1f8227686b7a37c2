// Package render produces static choropleth images from feature collections.
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	colors "gopkg.in/go-playground/colors.v1"
)

// Classification assigns values to class colors via precomputed breaks.
type Classification struct {
	// Breaks has len(Colors)+1 ascending class edges.
	Breaks []float64
	Colors []color.NRGBA
	NoData color.NRGBA
}

// Scheme names accepted by Classify.
const (
	SchemeQuantile = "quantile"
	SchemeEqual    = "equal"
)

// Classify computes class breaks over the given values and interpolates the
// ramp into one color per class. Values may contain NaN entries (missing
// attribute); they are ignored for break computation.
func Classify(values []float64, classes int, scheme string, ramp []string, nodata string) (*Classification, error) {
	if classes < 1 {
		return nil, fmt.Errorf("need at least one class")
	}

	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("no numeric values to classify")
	}
	sort.Float64s(clean)

	var breaks []float64
	switch scheme {
	case SchemeEqual:
		breaks = equalBreaks(clean[0], clean[len(clean)-1], classes)
	case SchemeQuantile, "":
		breaks = quantileBreaks(clean, classes)
	default:
		return nil, fmt.Errorf("unknown classification scheme %q", scheme)
	}

	cols, err := rampColors(ramp, classes)
	if err != nil {
		return nil, err
	}

	nd, err := parseHex(nodata)
	if err != nil {
		return nil, fmt.Errorf("nodata color: %w", err)
	}

	return &Classification{Breaks: breaks, Colors: cols, NoData: nd}, nil
}

// ColorFor returns the class color for a value; NaN gets the nodata color.
func (c *Classification) ColorFor(v float64) color.NRGBA {
	if math.IsNaN(v) {
		return c.NoData
	}

	// Last class is closed on both ends.
	for i := 1; i < len(c.Breaks)-1; i++ {
		if v < c.Breaks[i] {
			return c.Colors[i-1]
		}
	}
	return c.Colors[len(c.Colors)-1]
}

// LegendEntry is one class range with its display color.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// Legend renders the classification as ordered legend entries.
func (c *Classification) Legend() []LegendEntry {
	entries := make([]LegendEntry, len(c.Colors))
	for i := range c.Colors {
		from, to := c.Breaks[i], c.Breaks[i+1]
		entries[i] = LegendEntry{
			From:  from,
			To:    to,
			Label: fmt.Sprintf("%.6g – %.6g", from, to),
			Color: hexString(c.Colors[i]),
		}
	}
	return entries
}

func equalBreaks(min, max float64, n int) []float64 {
	breaks := make([]float64, n+1)
	step := (max - min) / float64(n)
	for i := 0; i <= n; i++ {
		breaks[i] = min + step*float64(i)
	}
	breaks[n] = max
	return breaks
}

func quantileBreaks(sorted []float64, n int) []float64 {
	breaks := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		pos := float64(i) / float64(n) * float64(len(sorted)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		frac := pos - float64(lo)
		breaks[i] = sorted[lo]*(1-frac) + sorted[hi]*frac
	}
	return breaks
}

// rampColors interpolates the hex ramp stops into n class colors.
func rampColors(stops []string, n int) ([]color.NRGBA, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("empty color ramp")
	}

	parsed := make([]color.NRGBA, len(stops))
	for i, s := range stops {
		c, err := parseHex(s)
		if err != nil {
			return nil, fmt.Errorf("ramp stop %q: %w", s, err)
		}
		parsed[i] = c
	}

	out := make([]color.NRGBA, n)
	if n == 1 {
		out[0] = parsed[0]
		return out, nil
	}

	for i := 0; i < n; i++ {
		pos := float64(i) / float64(n-1) * float64(len(parsed)-1)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		frac := pos - float64(lo)
		out[i] = lerp(parsed[lo], parsed[hi], frac)
	}
	return out, nil
}

func parseHex(s string) (color.NRGBA, error) {
	hex, err := colors.ParseHEX(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	rgb := hex.ToRGB()
	return color.NRGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 0xff}, nil
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-t) + float64(y)*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func hexString(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
