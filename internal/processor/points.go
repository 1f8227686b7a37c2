package processor

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom"

	"github.com/woozymasta/zonemap/internal/config"
	"github.com/woozymasta/zonemap/internal/feature"
	"github.com/woozymasta/zonemap/internal/join"
)

// joinPoints loads the job's point dataset and joins it against the zone
// polygons by containment.
func joinPoints(job config.Job, zones *feature.Collection) (*feature.Collection, error) {
	points, err := loadPoints(job.Points)
	if err != nil {
		return nil, err
	}

	prefix := job.Points.Prefix
	if prefix == "" {
		prefix = "zone_"
	}

	joined, err := join.Within(points, zones, prefix)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("job", job.Name).
		Int("points", joined.Len()).
		Int("zones", zones.Len()).
		Msg("Spatial join finished")

	return joined, nil
}

// loadPoints reads the point dataset from a GeoJSON file or from inline
// config entries. Inline data takes priority, matching how inline map
// locations behave elsewhere in the config.
func loadPoints(spec *config.PointsSpec) (*feature.Collection, error) {
	if len(spec.Inline) > 0 {
		col := feature.NewCollection(4326)
		for _, p := range spec.Inline {
			props := map[string]any{"name": p.Name}
			for k, v := range p.Properties {
				props[k] = v
			}
			col.Append(geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}), props)
		}
		return col, nil
	}

	if spec.File == "" {
		return nil, fmt.Errorf("points requires either a file or inline entries")
	}

	col, err := feature.ReadGeoJSON(spec.File)
	if err != nil {
		return nil, fmt.Errorf("read points %s: %w", spec.File, err)
	}
	return col, nil
}
