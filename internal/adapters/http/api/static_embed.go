package api

import (
	"embed"
	"html/template"
)

//go:embed static/*.html
var apiStaticFS embed.FS

// pages holds the parsed form and results templates.
var pages = template.Must(template.ParseFS(apiStaticFS, "static/*.html"))

// Template names.
const (
	indexPage   = "index.html"
	resultsPage = "results.html"
)
