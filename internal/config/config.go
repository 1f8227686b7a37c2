// Package config handles configuration loading and shared data structures.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Attribution string  `yaml:"attribution,omitempty"`
	OutputDir   string  `yaml:"output_dir,omitempty"`
	TargetEPSG  int     `yaml:"target_epsg,omitempty"`
	ImageWidth  int     `yaml:"image_width,omitempty"`
	WebpQuality float32 `yaml:"webp_quality,omitempty"`
	SnapGrid    float64 `yaml:"snap_grid,omitempty"`
	Jobs        []Job   `yaml:"jobs"`
}

// Job describes one pipeline run: source, transformations and outputs.
type Job struct {
	Index *int `yaml:"index,omitempty" json:"index,omitempty"`

	Name        string          `yaml:"name" json:"name"`
	Source      Source          `yaml:"source" json:"-"`
	Dissolve    *DissolveSpec   `yaml:"dissolve,omitempty" json:"-"`
	TargetEPSG  int             `yaml:"target_epsg,omitempty" json:"target_epsg,omitempty"`
	Area        *AreaSpec       `yaml:"area,omitempty" json:"-"`
	Choropleth  *ChoroplethSpec `yaml:"choropleth,omitempty" json:"-"`
	Points      *PointsSpec     `yaml:"points,omitempty" json:"-"`
	Raster      *RasterSpec     `yaml:"raster,omitempty" json:"-"`
	Attribution string          `yaml:"attribution,omitempty" json:"attribution,omitempty"`
}

// Source selects rows from a PostGIS table.
type Source struct {
	Table           string   `yaml:"table"`
	GeometryColumn  string   `yaml:"geometry_column,omitempty"`
	FilterAttribute string   `yaml:"filter_attribute,omitempty"`
	FilterValue     string   `yaml:"filter_value,omitempty"`
	Attributes      []string `yaml:"attributes,omitempty"`
}

// DissolveSpec merges features sharing one attribute value.
type DissolveSpec struct {
	By   string   `yaml:"by"`
	Keep []string `yaml:"keep,omitempty"`
}

// AreaSpec derives an area attribute from the (projected) geometry.
type AreaSpec struct {
	Attribute string  `yaml:"attribute,omitempty"`
	Divisor   float64 `yaml:"divisor,omitempty"`
}

// ChoroplethSpec controls thematic map styling.
type ChoroplethSpec struct {
	Attribute   string   `yaml:"attribute"`
	Classes     int      `yaml:"classes,omitempty"`
	Scheme      string   `yaml:"scheme,omitempty"` // quantile or equal
	Ramp        []string `yaml:"ramp,omitempty"`
	NoDataColor string   `yaml:"nodata_color,omitempty"`
}

// PointsSpec is a point dataset to join against the polygons.
type PointsSpec struct {
	File   string        `yaml:"file,omitempty"`
	Inline []InlinePoint `yaml:"inline,omitempty"`
	Prefix string        `yaml:"prefix,omitempty"`
}

// InlinePoint allows defining small point datasets directly in config.yaml.
type InlinePoint struct {
	Name       string         `yaml:"name" json:"name"`
	Lon        float64        `yaml:"lon" json:"lon"`
	Lat        float64        `yaml:"lat" json:"lat"`
	Properties map[string]any `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// RasterSpec is a local GeoTIFF to summarize per polygon.
type RasterSpec struct {
	File      string    `yaml:"file"`
	WorldFile string    `yaml:"world_file,omitempty"`
	Transform []float64 `yaml:"transform,omitempty"` // 6-parameter affine, world-file order
	Band      int       `yaml:"band,omitempty"`
	NoData    *float64  `yaml:"nodata,omitempty"`
	Stats     []string  `yaml:"stats,omitempty"`
	Prefix    string    `yaml:"prefix,omitempty"`
}

// Credentials holds database connection parameters, read from a JSON file.
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	for i := range cfg.Jobs {
		if err := cfg.Jobs[i].validate(); err != nil {
			return nil, fmt.Errorf("job %q: %w", cfg.Jobs[i].Name, err)
		}
	}

	return &cfg, nil
}

// LoadCredentials reads database connection parameters from a JSON file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	if creds.Port <= 0 {
		creds.Port = 5432
	}
	if creds.SSLMode == "" {
		creds.SSLMode = "prefer"
	}

	return &creds, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "maps"
	}
	if c.TargetEPSG <= 0 {
		c.TargetEPSG = 3857
	}
	if c.ImageWidth <= 0 {
		c.ImageWidth = 1024
	}
	if c.WebpQuality <= 0 {
		c.WebpQuality = 85
	}
	if c.SnapGrid <= 0 {
		c.SnapGrid = 1e-9
	}

	for i := range c.Jobs {
		job := &c.Jobs[i]

		if job.TargetEPSG <= 0 {
			job.TargetEPSG = c.TargetEPSG
		}
		if job.Attribution == "" {
			job.Attribution = c.Attribution
		}
		if job.Source.GeometryColumn == "" {
			job.Source.GeometryColumn = "geom"
		}
		if job.Area != nil {
			if job.Area.Attribute == "" {
				job.Area.Attribute = "area"
			}
			if job.Area.Divisor == 0 {
				job.Area.Divisor = 1
			}
		}
		if job.Choropleth != nil {
			if job.Choropleth.Classes <= 0 {
				job.Choropleth.Classes = 5
			}
			if job.Choropleth.Scheme == "" {
				job.Choropleth.Scheme = "quantile"
			}
			if len(job.Choropleth.Ramp) == 0 {
				job.Choropleth.Ramp = []string{"#ffffcc", "#a1dab4", "#41b6c4", "#225ea8"}
			}
			if job.Choropleth.NoDataColor == "" {
				job.Choropleth.NoDataColor = "#d9d9d9"
			}
		}
		if job.Raster != nil {
			if job.Raster.Band <= 0 {
				job.Raster.Band = 1
			}
			if len(job.Raster.Stats) == 0 {
				job.Raster.Stats = []string{"count", "min", "max", "mean"}
			}
			if job.Raster.Prefix == "" {
				job.Raster.Prefix = "r_"
			}
		}
	}
}

func (j *Job) validate() error {
	if j.Name == "" {
		return fmt.Errorf("name is required")
	}
	if j.Source.Table == "" {
		return fmt.Errorf("source.table is required")
	}
	if j.Dissolve != nil && j.Dissolve.By == "" {
		return fmt.Errorf("dissolve.by is required when dissolve is set")
	}
	if j.Choropleth != nil && j.Choropleth.Attribute == "" {
		return fmt.Errorf("choropleth.attribute is required when choropleth is set")
	}
	if j.Raster != nil && j.Raster.File == "" {
		return fmt.Errorf("raster.file is required when raster is set")
	}
	if j.Raster != nil && len(j.Raster.Transform) != 0 && len(j.Raster.Transform) != 6 {
		return fmt.Errorf("raster.transform must have exactly 6 parameters")
	}
	return nil
}
