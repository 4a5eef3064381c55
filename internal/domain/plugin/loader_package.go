package plugin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// PackageType is the composer package type of plugin packages.
const PackageType = "berth-plugin"

// ManifestPath is the project-relative composer installed-package manifest.
const ManifestPath = "vendor/composer/installed.json"

// PackageLoader discovers plugins installed by the package manager. It
// reads the installed-package manifest only; package directories are not
// scanned.
type PackageLoader struct {
	ManifestPath string
}

// InstalledPackage is a plugin package entry of the manifest.
type InstalledPackage struct {
	Name        string
	Version     string
	InstallPath string
	// Class is extra.berth.plugin-class.
	Class string
	// Manifest is extra.berth.plugin-manifest, relative to InstallPath.
	Manifest string
}

// Packages returns the manifest's plugin packages in manifest order.
// Both the v1 (top-level array) and v2 ({"packages": [...]}) layouts are
// accepted.
func (l *PackageLoader) Packages() ([]InstalledPackage, error) {
	data, err := os.ReadFile(l.ManifestPath)
	if err != nil {
		return nil, err
	}
	return parseInstalled(data, filepath.Dir(l.ManifestPath)), nil
}

func parseInstalled(data []byte, manifestDir string) []InstalledPackage {
	if !gjson.ValidBytes(data) {
		return nil
	}
	root := gjson.ParseBytes(data)
	list := root
	if root.IsObject() {
		list = root.Get("packages")
	}
	if !list.IsArray() {
		return nil
	}

	var pkgs []InstalledPackage
	list.ForEach(func(_, pkg gjson.Result) bool {
		if pkg.Get("type").String() != PackageType {
			return true
		}
		name := pkg.Get("name").String()
		installPath := pkg.Get("install-path").String()
		switch {
		case installPath == "":
			// Manifest v1 omits install-path; packages live in vendor/<name>.
			installPath = filepath.Join(filepath.Dir(manifestDir), filepath.FromSlash(name))
		case !filepath.IsAbs(installPath):
			installPath = filepath.Join(manifestDir, filepath.FromSlash(installPath))
		}
		pkgs = append(pkgs, InstalledPackage{
			Name:        name,
			Version:     pkg.Get("version").String(),
			InstallPath: installPath,
			Class:       pkg.Get(`extra.berth.plugin-class`).String(),
			Manifest:    pkg.Get(`extra.berth.plugin-manifest`).String(),
		})
		return true
	})
	return pkgs
}

// Load extracts a plugin per plugin package. The plugin class is resolved
// through the factory table; a package whose class is unknown falls back
// to its declared plugin manifest.
func (l *PackageLoader) Load(ctx context.Context, x *Extractor) []Discovered {
	pkgs, err := l.Packages()
	if err != nil {
		if !os.IsNotExist(err) {
			x.debug(ctx, "cannot read package manifest", ports.F("path", l.ManifestPath), ports.F("error", err))
		}
		return nil
	}

	var found []Discovered
	for _, pkg := range pkgs {
		if p, ok := l.extract(ctx, x, pkg); ok {
			found = append(found, Discovered{Plugin: p, Source: SourcePackage, Dir: pkg.InstallPath})
		}
	}
	return found
}

func (l *PackageLoader) extract(ctx context.Context, x *Extractor, pkg InstalledPackage) (Plugin, bool) {
	if pkg.Class != "" {
		if _, known := x.Factories.Lookup(pkg.Class); known || pkg.Manifest == "" {
			return x.Extract(ctx, Candidate{ID: pkg.Class, Dir: pkg.InstallPath})
		}
	}
	if pkg.Manifest == "" {
		x.debug(ctx, "plugin package declares no plugin class", ports.F("package", pkg.Name))
		return nil, false
	}

	path := filepath.Join(pkg.InstallPath, filepath.FromSlash(pkg.Manifest))
	data, err := os.ReadFile(path)
	if err != nil {
		x.debug(ctx, "cannot read plugin package manifest", ports.F("package", pkg.Name), ports.F("error", err))
		return nil, false
	}
	return x.Extract(ctx, Candidate{Path: path, Data: data, Dir: filepath.Dir(path)})
}
