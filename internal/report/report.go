package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"autotrans/internal/services"
)

// FileName is the report file written into the spectrogram directory.
const FileName = "report.html"

//go:embed report.html.tmpl
var pageTemplate string

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(pageTemplate))

// Track is one track's spectrogram pair.
type Track struct {
	Name   string
	Images []string
}

// Section groups the tracks of one release.
type Section struct {
	Title     string
	ValidLogs int
	Tracks    []Track
}

// Empty reports whether no section carries any image.
func Empty(sections []Section) bool {
	for _, section := range sections {
		for _, track := range section.Tracks {
			if len(track.Images) > 0 {
				return false
			}
		}
	}
	return true
}

// Write renders sections into dir/report.html and returns the report path.
func Write(dir string, sections []Section) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", services.Wrap(services.ErrConfiguration, "report", "write", "spectrogram directory is not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "report", "write", "create spectrogram directory", err)
	}

	view := make([]Section, 0, len(sections))
	for _, section := range sections {
		rel := Section{Title: section.Title, ValidLogs: section.ValidLogs}
		for _, track := range section.Tracks {
			images := make([]string, 0, len(track.Images))
			for _, image := range track.Images {
				images = append(images, relativeTo(dir, image))
			}
			rel.Tracks = append(rel.Tracks, Track{Name: track.Name, Images: images})
		}
		view = append(view, rel)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render spectrogram report: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "report", "write", path, err)
	}
	return path, nil
}

func relativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
