package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

var textTypes = map[string]string{
	".csv":     "text/csv; charset=utf-8",
	".tsv":     "text/tab-separated-values; charset=utf-8",
	".txt":     "text/plain; charset=utf-8",
	".json":    "application/json",
	".geojson": "application/geo+json",
	".gpkg":    "application/geopackage+sqlite3",
	".yaml":    "text/plain; charset=utf-8",
	".yml":     "text/plain; charset=utf-8",
}

// DetectContentType guesses the media type of an uploaded artifact from its
// file extension.
func DetectContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := textTypes[ext]; ok {
		return t
	} else if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
