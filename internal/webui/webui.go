// Package webui embeds the static dashboard frontend.
package webui

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Bundle holds the embedded frontend assets.
type Bundle struct {
	// StaticFS serves the asset files under /static.
	StaticFS fs.FS
	// IndexHTML is the single page handed out for every UI route.
	IndexHTML []byte
}

// Load returns the embedded frontend bundle.
func Load() (*Bundle, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("webui: sub fs: %w", err)
	}
	index, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		return nil, fmt.Errorf("webui: read index: %w", err)
	}
	return &Bundle{StaticFS: sub, IndexHTML: index}, nil
}
