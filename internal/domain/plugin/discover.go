package plugin

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	ProjectRoot string
	// Bundled is the embedded plugin root. Nil disables bundled plugins.
	Bundled fs.FS
	// Factories resolves declared identifiers. Defaults to DefaultFactories.
	Factories *FactoryTable
	// PluginConfig holds raw settings per plugin name.
	PluginConfig map[string]map[string]any
	Runner       ports.CommandRunner
	Logger       ports.Logger
	// ToolVersion is checked against "berth" requirements.
	ToolVersion string
	// LocalDir overrides <ProjectRoot>/.berth/plugins.
	LocalDir string
	// PackageManifest overrides <ProjectRoot>/vendor/composer/installed.json.
	PackageManifest string
}

// Discover loads plugins from every source and registers them. Sources
// are applied bundled, then package, then local, so a later source
// replaces an earlier plugin of the same name. A configuration error
// aborts discovery; discovery failures never do.
func Discover(ctx context.Context, opts DiscoverOptions) (*Registry, error) {
	factories := opts.Factories
	if factories == nil {
		factories = DefaultFactories
	}
	localDir := opts.LocalDir
	if localDir == "" {
		localDir = filepath.Join(opts.ProjectRoot, filepath.FromSlash(LocalDir))
	}
	manifest := opts.PackageManifest
	if manifest == "" {
		manifest = filepath.Join(opts.ProjectRoot, filepath.FromSlash(ManifestPath))
	}

	x := &Extractor{Factories: factories, Runner: opts.Runner, Logger: opts.Logger}
	loaders := []Loader{
		&BundledLoader{Root: opts.Bundled},
		&PackageLoader{ManifestPath: manifest},
		&LocalLoader{Dir: localDir},
	}

	var found []Discovered
	for _, l := range loaders {
		found = append(found, l.Load(ctx, x)...)
	}

	// Only the last plugin of each name is registered, so a replaced
	// plugin's settings are never validated against the wrong schema.
	last := make(map[string]int, len(found))
	for i, d := range found {
		last[d.Plugin.Descriptor().Name] = i
	}

	reg := NewRegistry()
	for i, d := range found {
		name := d.Plugin.Descriptor().Name
		if last[name] != i {
			x.debug(ctx, "plugin replaced by a later source", ports.F("plugin", name), ports.F("source", d.Source))
			continue
		}
		if _, err := reg.RegisterFrom(d.Plugin, opts.PluginConfig[name], d.Source, d.Dir); err != nil {
			return nil, err
		}
		x.debug(ctx, "registered plugin",
			ports.F("plugin", name),
			ports.F("version", d.Plugin.Descriptor().Version),
			ports.F("source", d.Source))
	}

	for _, msg := range UnmetRequirements(reg, opts.ToolVersion) {
		if opts.Logger != nil {
			opts.Logger.Warn(ctx, "unmet plugin requirement", ports.F("detail", msg))
		}
	}
	return reg, nil
}
