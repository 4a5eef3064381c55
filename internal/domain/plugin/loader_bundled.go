package plugin

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// bundledSuffixes are the file-name endings that mark a bundled plugin
// declaration.
var bundledSuffixes = []string{"plugin.yaml", "plugin.yml", "plugin.toml"}

// BundledLoader discovers plugins shipped inside the binary. Each
// subdirectory of Root is one plugin; only files following the naming
// convention are considered.
type BundledLoader struct {
	Root fs.FS
}

// Load extracts the bundled plugins in directory order.
func (l *BundledLoader) Load(ctx context.Context, x *Extractor) []Discovered {
	if l.Root == nil {
		return nil
	}
	entries, err := fs.ReadDir(l.Root, ".")
	if err != nil {
		x.debug(ctx, "cannot read bundled plugin root", ports.F("error", err))
		return nil
	}

	var found []Discovered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := entry.Name()
		files, err := fs.ReadDir(l.Root, dir)
		if err != nil {
			x.debug(ctx, "cannot read bundled plugin directory", ports.F("dir", dir), ports.F("error", err))
			continue
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && isBundledDeclaration(f.Name()) {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			file := path.Join(dir, name)
			data, err := fs.ReadFile(l.Root, file)
			if err != nil {
				x.debug(ctx, "cannot read bundled plugin declaration", ports.F("file", file), ports.F("error", err))
				continue
			}
			provenance := BuiltinPrefix + dir
			p, ok := x.Extract(ctx, Candidate{Path: BuiltinPrefix + file, Data: data, Dir: provenance})
			if !ok {
				continue
			}
			found = append(found, Discovered{Plugin: p, Source: SourceBundled, Dir: provenance})
		}
	}
	return found
}

func isBundledDeclaration(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range bundledSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
