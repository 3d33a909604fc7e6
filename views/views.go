// Package views holds the HTML templates of the upload form.
package views

import (
	"embed"
	"html/template"
)

//go:embed *.html
var FS embed.FS

// Templates are parsed once at startup; names are the file names.
var Templates = template.Must(template.ParseFS(FS, "*.html"))
