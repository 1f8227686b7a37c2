package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var testRamp = []string{"#000000", "#ffffff"}

func TestClassifyEqualBreaks(t *testing.T) {
	values := []float64{0, 2, 4, 6, 8, 10}

	cls, err := Classify(values, 5, SchemeEqual, testRamp, "#d9d9d9")
	require.NoError(t, err)

	require.Equal(t, []float64{0, 2, 4, 6, 8, 10}, cls.Breaks)
	require.Len(t, cls.Colors, 5)
}

func TestClassifyQuantileBreaks(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	cls, err := Classify(values, 4, SchemeQuantile, testRamp, "#d9d9d9")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, cls.Breaks)

	// Quantile is the default scheme.
	def, err := Classify(values, 4, "", testRamp, "#d9d9d9")
	require.NoError(t, err)
	require.Equal(t, cls.Breaks, def.Breaks)
}

func TestClassifySkewedQuantiles(t *testing.T) {
	// Quantile breaks follow the data distribution, not the value range.
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 100}

	cls, err := Classify(values, 2, SchemeQuantile, testRamp, "#d9d9d9")
	require.NoError(t, err)

	require.Equal(t, 1.0, cls.Breaks[0])
	require.Equal(t, 1.0, cls.Breaks[1])
	require.Equal(t, 100.0, cls.Breaks[2])
}

func TestClassifyIgnoresNaN(t *testing.T) {
	values := []float64{math.NaN(), 5, math.NaN(), 15}

	cls, err := Classify(values, 2, SchemeEqual, testRamp, "#d9d9d9")
	require.NoError(t, err)
	require.Equal(t, []float64{5, 10, 15}, cls.Breaks)
}

func TestClassifyErrors(t *testing.T) {
	values := []float64{1, 2}

	_, err := Classify(values, 0, SchemeEqual, testRamp, "#d9d9d9")
	require.Error(t, err)

	_, err = Classify([]float64{math.NaN()}, 2, SchemeEqual, testRamp, "#d9d9d9")
	require.Error(t, err)

	_, err = Classify(values, 2, "jenks", testRamp, "#d9d9d9")
	require.Error(t, err)

	_, err = Classify(values, 2, SchemeEqual, []string{"not-a-color"}, "#d9d9d9")
	require.Error(t, err)

	_, err = Classify(values, 2, SchemeEqual, nil, "#d9d9d9")
	require.Error(t, err)

	_, err = Classify(values, 2, SchemeEqual, testRamp, "bogus")
	require.Error(t, err)
}

func TestRampColors(t *testing.T) {
	cols, err := rampColors(testRamp, 3)
	require.NoError(t, err)

	require.Equal(t, color.NRGBA{R: 0, G: 0, B: 0, A: 255}, cols[0])
	require.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, cols[1])
	require.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, cols[2])

	// Single class takes the first ramp stop.
	cols, err = rampColors(testRamp, 1)
	require.NoError(t, err)
	require.Equal(t, color.NRGBA{R: 0, G: 0, B: 0, A: 255}, cols[0])
}

func TestColorFor(t *testing.T) {
	cls, err := Classify([]float64{0, 10}, 2, SchemeEqual, testRamp, "#d9d9d9")
	require.NoError(t, err)

	require.Equal(t, cls.Colors[0], cls.ColorFor(0))
	require.Equal(t, cls.Colors[0], cls.ColorFor(4.9))
	require.Equal(t, cls.Colors[1], cls.ColorFor(5))
	require.Equal(t, cls.Colors[1], cls.ColorFor(10))
	require.Equal(t, cls.NoData, cls.ColorFor(math.NaN()))

	// Out-of-range values clamp to the edge classes.
	require.Equal(t, cls.Colors[0], cls.ColorFor(-100))
	require.Equal(t, cls.Colors[1], cls.ColorFor(100))
}

func TestLegend(t *testing.T) {
	cls, err := Classify([]float64{0, 10}, 2, SchemeEqual, testRamp, "#d9d9d9")
	require.NoError(t, err)

	legend := cls.Legend()
	require.Len(t, legend, 2)

	require.Equal(t, 0.0, legend[0].From)
	require.Equal(t, 5.0, legend[0].To)
	require.Equal(t, 5.0, legend[1].From)
	require.Equal(t, 10.0, legend[1].To)
	require.Equal(t, "#000000", legend[0].Color)
	require.Equal(t, "#ffffff", legend[1].Color)
	require.NotEmpty(t, legend[0].Label)
}
