// Package processor runs the per-job transformation pipeline.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/crs"
	"github.com/woozymasta/zonemap/internal/dissolve"
	"github.com/woozymasta/zonemap/internal/feature"
	"github.com/woozymasta/zonemap/internal/postgis"
	"github.com/woozymasta/zonemap/internal/raster"
	"github.com/woozymasta/zonemap/internal/render"
	"github.com/woozymasta/zonemap/internal/viewer"
)

// Summary is the machine-readable result of one job, written as job.json.
type Summary struct {
	GeneratedAt         time.Time `json:"generated_at"`
	Name                string    `json:"name"`
	SourceTable         string    `json:"source_table"`
	AreaAttribute       string    `json:"area_attribute,omitempty"`
	ChoroplethAttribute string    `json:"choropleth_attribute,omitempty"`
	RasterFile          string    `json:"raster_file,omitempty"`
	SourceCount         int       `json:"source_count"`
	DissolvedCount      int       `json:"dissolved_count,omitempty"`
	PointCount          int       `json:"point_count,omitempty"`
	SourceEPSG          int       `json:"source_epsg"`
	TargetEPSG          int       `json:"target_epsg"`
}

// Run executes the pipeline stages for one job and writes its artifacts
// under <output_dir>/<job name>/. Stages run strictly in sequence; the
// first failure aborts the job.
func Run(ctx context.Context, cfg *config.Config, job config.Job, creds *config.Credentials, force, fastCheck bool) error {
	outDir := filepath.Join(cfg.OutputDir, job.Name)

	if fastCheck {
		if _, err := os.Stat(outDir); err == nil {
			log.Info().Str("job", job.Name).Msg("Output directory exists, skipping (fast-check)")
			return nil
		}
	}
	if !force {
		if _, err := os.Stat(filepath.Join(outDir, "job.json")); err == nil {
			log.Debug().Str("job", job.Name).Msg("Job output exists, skipping")
			return nil
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	summary := Summary{
		Name:        job.Name,
		SourceTable: job.Source.Table,
		TargetEPSG:  job.TargetEPSG,
	}

	// Fetch from PostGIS and normalize the geometry column.
	zones, err := fetchZones(ctx, job, creds)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	summary.SourceCount = zones.Len()
	summary.SourceEPSG = zones.EPSG

	// Dissolve by attribute.
	if job.Dissolve != nil {
		zones, err = dissolve.Dissolve(zones, job.Dissolve.By, job.Dissolve.Keep, cfg.SnapGrid)
		if err != nil {
			return fmt.Errorf("dissolve by %q: %w", job.Dissolve.By, err)
		}
		summary.DissolvedCount = zones.Len()

		log.Info().
			Str("job", job.Name).
			Str("by", job.Dissolve.By).
			Int("features_in", summary.SourceCount).
			Int("features_out", zones.Len()).
			Msg("Dissolved features")
	}

	// Zonal raster statistics, while the zones are still in the raster CRS.
	if job.Raster != nil {
		zones, err = zonalStats(zones, job.Raster)
		if err != nil {
			return fmt.Errorf("zonal statistics: %w", err)
		}
		summary.RasterFile = job.Raster.File
	}

	// Reproject and derive area in the projected CRS.
	projected, err := crs.Transform(zones, job.TargetEPSG)
	if err != nil {
		return fmt.Errorf("reproject to EPSG:%d: %w", job.TargetEPSG, err)
	}
	log.Info().
		Str("job", job.Name).
		Int("from_epsg", zones.EPSG).
		Int("to_epsg", job.TargetEPSG).
		Msg("Reprojected features")

	if job.Area != nil {
		projected, err = crs.AddArea(projected, job.Area.Attribute, job.Area.Divisor)
		if err != nil {
			return fmt.Errorf("derive area: %w", err)
		}
		summary.AreaAttribute = job.Area.Attribute

		// The geodetic twin keeps the same feature order; carry the
		// derived attribute back so every output has it.
		for i := range zones.Features {
			zones.Features[i].Properties[job.Area.Attribute] =
				projected.Features[i].Properties[job.Area.Attribute]
		}
	}

	if err := zones.WriteGeoJSON(filepath.Join(outDir, "data.geojson")); err != nil {
		return fmt.Errorf("write data.geojson: %w", err)
	}

	// Spatial join of the point dataset.
	if job.Points != nil {
		joined, err := joinPoints(job, zones)
		if err != nil {
			return fmt.Errorf("spatial join: %w", err)
		}
		summary.PointCount = joined.Len()

		if err := joined.WriteGeoJSON(filepath.Join(outDir, "points.geojson")); err != nil {
			return fmt.Errorf("write points.geojson: %w", err)
		}
	}

	// Static and interactive choropleth maps.
	if job.Choropleth != nil {
		if err := renderMaps(cfg, job, zones, projected, outDir); err != nil {
			return err
		}
		summary.ChoroplethAttribute = job.Choropleth.Attribute
	}

	summary.GeneratedAt = time.Now().UTC()
	if err := writeSummary(filepath.Join(outDir, "job.json"), summary); err != nil {
		return err
	}

	log.Info().
		Str("job", job.Name).
		Str("dir", outDir).
		Int("features", zones.Len()).
		Msg("Job finished")

	return nil
}

// fetchZones opens one connection, runs the job query and closes it.
func fetchZones(ctx context.Context, job config.Job, creds *config.Credentials) (*feature.Collection, error) {
	conn, err := postgis.Connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close database connection")
		}
	}()

	zones, err := postgis.FetchFeatures(ctx, conn, postgis.Query{
		Table:           job.Source.Table,
		GeometryColumn:  job.Source.GeometryColumn,
		FilterAttribute: job.Source.FilterAttribute,
		FilterValue:     job.Source.FilterValue,
		Attributes:      job.Source.Attributes,
	})
	if err != nil {
		return nil, err
	}

	zones.RenameGeometry(feature.DefaultGeometryColumn)
	return zones, nil
}

func zonalStats(zones *feature.Collection, spec *config.RasterSpec) (*feature.Collection, error) {
	rast, err := raster.Open(spec.File, raster.Options{
		Band:      spec.Band,
		NoData:    spec.NoData,
		WorldFile: spec.WorldFile,
		Transform: spec.Transform,
		EPSG:      zones.EPSG,
	})
	if err != nil {
		return nil, err
	}

	w, h := rast.Size()
	log.Info().
		Str("file", spec.File).
		Int("width", w).
		Int("height", h).
		Int("band", spec.Band).
		Msg("Raster loaded")

	return raster.ZonalStats(zones, rast, spec.Stats, spec.Prefix)
}

func renderMaps(cfg *config.Config, job config.Job, zones, projected *feature.Collection, outDir string) error {
	m, err := render.Choropleth(projected, render.Options{
		Attribute:   job.Choropleth.Attribute,
		Classes:     job.Choropleth.Classes,
		Scheme:      job.Choropleth.Scheme,
		Ramp:        job.Choropleth.Ramp,
		NoDataColor: job.Choropleth.NoDataColor,
		Width:       cfg.ImageWidth,
	})
	if err != nil {
		return fmt.Errorf("render choropleth: %w", err)
	}

	if err := writeImage(filepath.Join(outDir, "choropleth.png"), m.EncodePNG); err != nil {
		return err
	}
	if err := writeImage(filepath.Join(outDir, "choropleth.webp"), func(w io.Writer) error {
		return m.EncodeWebP(w, cfg.WebpQuality)
	}); err != nil {
		return err
	}

	// The interactive page embeds geodetic data; Leaflet expects lon/lat.
	data, err := zones.GeoJSON()
	if err != nil {
		return err
	}
	page, err := viewer.Render(viewer.Page{
		Name:           job.Name,
		Attribute:      job.Choropleth.Attribute,
		Attribution:    job.Attribution,
		GeoJSON:        data,
		Classification: m.Classification,
	})
	if err != nil {
		return fmt.Errorf("render viewer: %w", err)
	}

	return os.WriteFile(filepath.Join(outDir, "index.html"), page, 0644)
}

func writeImage(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	if err := encode(f); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func writeSummary(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
