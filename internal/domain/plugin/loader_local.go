package plugin

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// LocalDir is the project-relative directory holding local plugins.
const LocalDir = ".berth/plugins"

// LocalLoader discovers plugins in a project's plugin directory. Every
// declaration file below Dir is a candidate, whatever its name.
type LocalLoader struct {
	Dir string
}

// Load walks Dir in lexical order.
func (l *LocalLoader) Load(ctx context.Context, x *Extractor) []Discovered {
	info, err := os.Stat(l.Dir)
	if err != nil || !info.IsDir() {
		return nil
	}

	var found []Discovered
	walkErr := filepath.WalkDir(l.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			x.debug(ctx, "cannot read local plugin path", ports.F("path", path), ports.F("error", err))
			if d != nil && d.IsDir() && path != l.Dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsDeclarationFile(path) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			x.debug(ctx, "cannot read local plugin file", ports.F("path", path), ports.F("error", err))
			return nil
		}
		dir := filepath.Dir(path)
		if p, ok := x.Extract(ctx, Candidate{Path: path, Data: data, Dir: dir}); ok {
			found = append(found, Discovered{Plugin: p, Source: SourceLocal, Dir: dir})
		}
		return nil
	})
	if walkErr != nil {
		x.debug(ctx, "local plugin walk stopped", ports.F("error", walkErr))
	}
	return found
}
