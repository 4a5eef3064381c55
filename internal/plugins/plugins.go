// Package plugins links the bundled plugins into the binary and exposes the
// embedded declarations they are discovered from.
package plugins

import (
	"embed"
	"io/fs"

	_ "github.com/felixgeelhaar/berth/internal/plugins/mailpit"
	_ "github.com/felixgeelhaar/berth/internal/plugins/mongodb"
	_ "github.com/felixgeelhaar/berth/internal/plugins/xdebug"
)

//go:embed all:bundled
var bundled embed.FS

// Bundled returns the root of the embedded plugin directories.
func Bundled() fs.FS {
	sub, err := fs.Sub(bundled, "bundled")
	if err != nil {
		panic(err)
	}
	return sub
}
