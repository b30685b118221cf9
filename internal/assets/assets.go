// Package assets holds files compiled into the binaries.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed web
var files embed.FS

// WebUI is the control page and its scripts, rooted so index.html is at "/".
var WebUI = mustSub(files, "web")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
