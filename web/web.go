// Package web embeds the browser client.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Static is the static asset tree; index.html lives at its root.
var Static, _ = fs.Sub(content, "static")
