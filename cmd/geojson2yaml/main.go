// geojson2yaml converts between GeoJSON point files and the inline points
// block of config.yaml, so small datasets can live directly in config.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/feature"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Input  string `short:"i" long:"in" description:"Input file path. Reads from stdin if empty"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"yaml" choice:"geojson" default:"yaml"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	var outputData []byte
	var count int

	if opts.Format == "yaml" {
		outputData, count, err = geojsonToInline(inputData)
	} else {
		outputData, count, err = inlineToGeoJSON(inputData)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d points to %s (format: %s)\n", count, opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

// geojsonToInline turns GeoJSON point features into inline config entries.
func geojsonToInline(data []byte) ([]byte, int, error) {
	col, err := feature.FromGeoJSON(data)
	if err != nil {
		return nil, 0, err
	}

	points := make([]config.InlinePoint, 0, col.Len())
	for i, f := range col.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			fmt.Fprintf(os.Stderr, "Skipping feature %d: not a point\n", i)
			continue
		}

		name, _ := f.String("name")
		props := make(map[string]any)
		for k, v := range f.Properties {
			if k != "name" {
				props[k] = v
			}
		}
		if len(props) == 0 {
			props = nil
		}

		points = append(points, config.InlinePoint{
			Name:       name,
			Lon:        pt.X(),
			Lat:        pt.Y(),
			Properties: props,
		})
	}

	out, err := yaml.Marshal(map[string]any{"inline": points})
	if err != nil {
		return nil, 0, err
	}
	return out, len(points), nil
}

// inlineToGeoJSON turns an inline points block back into a GeoJSON file.
func inlineToGeoJSON(data []byte) ([]byte, int, error) {
	var spec struct {
		Inline []config.InlinePoint `yaml:"inline"`
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, 0, err
	}

	col := feature.NewCollection(4326)
	for _, p := range spec.Inline {
		props := map[string]any{"name": p.Name}
		for k, v := range p.Properties {
			props[k] = v
		}
		col.Append(geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}), props)
	}

	raw, err := col.GeoJSON()
	if err != nil {
		return nil, 0, err
	}

	var pretty any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return nil, 0, err
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return nil, 0, err
	}

	return out, col.Len(), nil
}
