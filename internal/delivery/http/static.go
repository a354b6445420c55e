package http

import (
	"embed"
	"io/fs"
)

//go:embed static
var embeddedStatic embed.FS

// staticAssets exposes the embedded frontend rooted at the asset
// directory; indexHTML is the page served at /.
var (
	staticAssets fs.FS
	indexHTML    []byte
)

func init() {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic(err)
	}
	staticAssets = sub

	page, err := embeddedStatic.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	indexHTML = page
}
