// Package viewer generates the interactive HTML map page for a job.
package viewer

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/woozymasta/zonemap/internal/render"
)

//go:embed assets/index.html.tpl assets/style.css assets/script.js
var assets embed.FS

// Page describes one interactive map page.
type Page struct {
	Name        string
	Attribute   string
	Attribution string

	// GeoJSON is the encoded feature collection embedded into the page.
	GeoJSON []byte

	Classification *render.Classification
}

type pageData struct {
	Name        string
	Attribute   string
	Attribution string
	GeoJSON     template.JS
	Legend      template.JS
	Breaks      template.JS
	Colors      template.JS
	CSS         template.CSS
	JS          template.JS
}

// Render executes and minifies the viewer template into a standalone HTML
// document.
func Render(p Page) ([]byte, error) {
	if p.Classification == nil {
		return nil, fmt.Errorf("page requires a classification")
	}

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)

	cssRaw, err := assets.ReadFile("assets/style.css")
	if err != nil {
		return nil, err
	}
	cssMin, err := m.String("text/css", string(cssRaw))
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}

	jsRaw, err := assets.ReadFile("assets/script.js")
	if err != nil {
		return nil, err
	}
	jsMin, err := m.String("text/javascript", string(jsRaw))
	if err != nil {
		return nil, fmt.Errorf("minify js: %w", err)
	}

	tplRaw, err := assets.ReadFile("assets/index.html.tpl")
	if err != nil {
		return nil, err
	}
	tpl, err := template.New("index").Parse(string(tplRaw))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	legend, err := json.Marshal(p.Classification.Legend())
	if err != nil {
		return nil, err
	}
	breaks, err := json.Marshal(p.Classification.Breaks)
	if err != nil {
		return nil, err
	}

	hexColors := make([]string, len(p.Classification.Colors))
	for i, c := range p.Classification.Colors {
		hexColors[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	colorsJSON, err := json.Marshal(hexColors)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, pageData{
		Name:        p.Name,
		Attribute:   p.Attribute,
		Attribution: p.Attribution,
		GeoJSON:     template.JS(p.GeoJSON),
		Legend:      template.JS(legend),
		Breaks:      template.JS(breaks),
		Colors:      template.JS(colorsJSON),
		CSS:         template.CSS(cssMin),
		JS:          template.JS(jsMin),
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	out, err := m.String("text/html", buf.String())
	if err != nil {
		return nil, fmt.Errorf("minify html: %w", err)
	}

	return []byte(out), nil
}
