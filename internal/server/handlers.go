// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const etagCap = 64

// artifacts maps servable file names to their content types. Anything else
// under a job directory is not exposed.
var artifacts = map[string]string{
	"index.html":      "text/html; charset=utf-8",
	"data.geojson":    "application/geo+json",
	"points.geojson":  "application/geo+json",
	"choropleth.png":  "image/png",
	"choropleth.webp": "image/webp",
	"job.json":        "application/json",
}

// HandleJobsList serves the JSON configuration of served jobs.
func (s *ServerContext) HandleJobsList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(s.Config.Jobs)
}

// HandleIndex serves the job listing page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleArtifact serves pipeline outputs for specific jobs.
func (s *ServerContext) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	// Path: /maps/{jobName}/{artifact}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	jobName := parts[1]
	if !s.knownJob(jobName) {
		http.NotFound(w, r)
		return
	}

	name := parts[2]
	contentType, ok := artifacts[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.Config.OutputDir, jobName, name)
	if s.serveFile(w, r, path, contentType) {
		return
	}

	// Missing images degrade to a transparent pixel so viewer layouts
	// stay intact.
	if strings.HasPrefix(contentType, "image/") {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(s.TransparentPixel)
		return
	}

	http.NotFound(w, r)
}

func (s *ServerContext) knownJob(name string) bool {
	for i := range s.Config.Jobs {
		if s.Config.Jobs[i].Name == name {
			return true
		}
	}
	return false
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}
