// Package web embeds the page templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static file system.
func StaticFS() fs.FS {
	return mustSub("static")
}

// TemplatesFS returns the templates file system.
func TemplatesFS() fs.FS {
	return mustSub("templates")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic("web: " + dir + ": " + err.Error())
	}
	return sub
}
