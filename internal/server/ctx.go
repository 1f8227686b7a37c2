package server

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/zonemap/internal/config"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config           *config.Config
	IndexHTML        []byte
	TransparentPixel []byte
}

// NewServerContext initializes the context and filters the configured jobs
// down to those with finished pipeline output.
func NewServerContext(cfg *config.Config) *ServerContext {
	log.Info().Int("config_jobs_count", len(cfg.Jobs)).Msg("Initializing server context")

	validJobs := make([]config.Job, 0, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		summaryPath := filepath.Join(cfg.OutputDir, job.Name, "job.json")
		if _, err := os.Stat(summaryPath); err != nil {
			log.Warn().
				Str("job", job.Name).
				Str("path", summaryPath).
				Msg("Skipping job: no pipeline output found")
			continue
		}

		log.Debug().Str("job", job.Name).Msg("Job output found")
		validJobs = append(validJobs, job)
	}
	cfg.Jobs = validJobs

	sort.Slice(cfg.Jobs, func(i, j int) bool {
		idxI, idxJ := 999999, 999999
		if cfg.Jobs[i].Index != nil {
			idxI = *cfg.Jobs[i].Index
		}
		if cfg.Jobs[j].Index != nil {
			idxJ = *cfg.Jobs[j].Index
		}
		if idxI != idxJ {
			return idxI < idxJ
		}

		return cfg.Jobs[i].Name < cfg.Jobs[j].Name
	})

	log.Info().
		Int("valid_jobs_count", len(cfg.Jobs)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:           cfg,
		IndexHTML:        buildIndexHTML(cfg),
		TransparentPixel: transparentPixel(),
	}
}

// buildIndexHTML renders the landing page listing all served jobs.
func buildIndexHTML(cfg *config.Config) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">" +
		"<title>zonemap</title></head><body><h1>zonemap</h1><ul>")

	for _, job := range cfg.Jobs {
		name := html.EscapeString(job.Name)
		fmt.Fprintf(&buf,
			`<li><a href="/maps/%s/index.html">%s</a> (<a href="/maps/%s/data.geojson">geojson</a>, <a href="/maps/%s/choropleth.png">png</a>)</li>`,
			name, name, name, name)
	}

	buf.WriteString("</ul></body></html>")
	return buf.Bytes()
}

// transparentPixel encodes the 1x1 fallback image served for missing maps.
func transparentPixel() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := png.Encode(&buf, img); err != nil {
		log.Error().Err(err).Msg("Failed to encode fallback pixel")
		return nil
	}
	return buf.Bytes()
}
