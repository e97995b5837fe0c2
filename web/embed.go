// Package web embeds the stock email template assets shipped with the
// server: the HTML bodies under templates/ and the manifest that names them.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templatesFS embed.FS

// Templates returns the embedded template assets rooted at the templates/
// directory, so callers see manifest.yaml and the .html files at the top
// level.
func Templates() fs.FS {
	subFS, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return subFS
}
