package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
jobs:
  - name: districts
    source:
      table: public.districts
    dissolve:
      by: province
    area: {}
    choropleth:
      attribute: area
    raster:
      file: dem.tif
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "maps", cfg.OutputDir)
	require.Equal(t, 3857, cfg.TargetEPSG)
	require.Equal(t, 1024, cfg.ImageWidth)
	require.Equal(t, float32(85), cfg.WebpQuality)
	require.Equal(t, 1e-9, cfg.SnapGrid)

	require.Len(t, cfg.Jobs, 1)
	job := cfg.Jobs[0]
	require.Equal(t, 3857, job.TargetEPSG)
	require.Equal(t, "geom", job.Source.GeometryColumn)
	require.Equal(t, "area", job.Area.Attribute)
	require.Equal(t, 1.0, job.Area.Divisor)
	require.Equal(t, 5, job.Choropleth.Classes)
	require.Equal(t, "quantile", job.Choropleth.Scheme)
	require.Len(t, job.Choropleth.Ramp, 4)
	require.Equal(t, "#d9d9d9", job.Choropleth.NoDataColor)
	require.Equal(t, 1, job.Raster.Band)
	require.Equal(t, []string{"count", "min", "max", "mean"}, job.Raster.Stats)
	require.Equal(t, "r_", job.Raster.Prefix)
}

func TestLoadJobOverrides(t *testing.T) {
	path := writeConfig(t, `
attribution: Statistics Netherlands
target_epsg: 32631
jobs:
  - name: a
    source:
      table: t
      geometry_column: wkb_geometry
  - name: b
    target_epsg: 3857
    attribution: Other
    source:
      table: t
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 32631, cfg.Jobs[0].TargetEPSG)
	require.Equal(t, "wkb_geometry", cfg.Jobs[0].Source.GeometryColumn)
	require.Equal(t, "Statistics Netherlands", cfg.Jobs[0].Attribution)

	require.Equal(t, 3857, cfg.Jobs[1].TargetEPSG)
	require.Equal(t, "Other", cfg.Jobs[1].Attribution)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing job name",
			yaml: "jobs:\n  - source:\n      table: t\n",
		},
		{
			name: "missing source table",
			yaml: "jobs:\n  - name: x\n",
		},
		{
			name: "dissolve without by",
			yaml: "jobs:\n  - name: x\n    source:\n      table: t\n    dissolve: {}\n",
		},
		{
			name: "choropleth without attribute",
			yaml: "jobs:\n  - name: x\n    source:\n      table: t\n    choropleth: {}\n",
		},
		{
			name: "raster without file",
			yaml: "jobs:\n  - name: x\n    source:\n      table: t\n    raster: {}\n",
		},
		{
			name: "bad raster transform length",
			yaml: "jobs:\n  - name: x\n    source:\n      table: t\n    raster:\n      file: r.tif\n      transform: [1, 2, 3]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "jobs: ["))
	require.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"host": "db.example.com",
		"user": "reader",
		"password": "secret",
		"database": "gis"
	}`), 0600))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)

	require.Equal(t, "db.example.com", creds.Host)
	require.Equal(t, 5432, creds.Port)
	require.Equal(t, "prefer", creds.SSLMode)
	require.Equal(t, "gis", creds.Database)
}

func TestLoadCredentialsExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"host": "localhost",
		"port": 5433,
		"user": "u",
		"password": "p",
		"database": "d",
		"sslmode": "disable"
	}`), 0600))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, 5433, creds.Port)
	require.Equal(t, "disable", creds.SSLMode)
}

func TestLoadCredentialsErrors(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
	_, err = LoadCredentials(path)
	require.Error(t, err)
}

func TestInlinePoints(t *testing.T) {
	path := writeConfig(t, `
jobs:
  - name: x
    source:
      table: t
    points:
      prefix: zone_
      inline:
        - name: station-1
          lon: 5.1
          lat: 52.3
          properties:
            kind: weather
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	pts := cfg.Jobs[0].Points
	require.NotNil(t, pts)
	require.Equal(t, "zone_", pts.Prefix)
	require.Len(t, pts.Inline, 1)
	require.Equal(t, "station-1", pts.Inline[0].Name)
	require.Equal(t, 5.1, pts.Inline[0].Lon)
	require.Equal(t, "weather", pts.Inline[0].Properties["kind"])
}
