package plugin

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// TemplateOverride replaces a core template with a plugin-provided file.
type TemplateOverride struct {
	Original string
	Override string
}

// TemplateResolver folds plugin template contributions into lookups for the
// template engine.
type TemplateResolver struct {
	registry *Registry
	bundled  fs.FS
}

// NewTemplateResolver creates a resolver. bundled is the embedded plugin
// root used to resolve builtin: directories; it may be nil.
func NewTemplateResolver(registry *Registry, bundled fs.FS) *TemplateResolver {
	return &TemplateResolver{registry: registry, bundled: bundled}
}

// Overrides maps each overridden template to its replacement. When several
// plugins override the same template the one registered last wins.
func (r *TemplateResolver) Overrides() map[string]string {
	out := make(map[string]string)
	for _, lp := range r.registry.All() {
		overrider, ok := lp.Plugin.(TemplateOverrider)
		if !ok {
			continue
		}
		for _, o := range overrider.TemplateOverrides() {
			if o.Original == "" {
				continue
			}
			out[o.Original] = o.Override
		}
	}
	return out
}

// Override returns the replacement for a single template, if any.
func (r *TemplateResolver) Override(original string) (string, bool) {
	override, ok := r.Overrides()[original]
	return override, ok
}

// TemplateDirs maps plugin names to the templates directory shipped next to
// the plugin. Plugins without one are omitted.
func (r *TemplateResolver) TemplateDirs() map[string]string {
	out := make(map[string]string)
	for _, lp := range r.registry.All() {
		if lp.Dir == "" {
			continue
		}
		if dir, ok := r.templateDir(lp.Dir); ok {
			out[lp.Name()] = dir
		}
	}
	return out
}

func (r *TemplateResolver) templateDir(dir string) (string, bool) {
	if rel, ok := strings.CutPrefix(dir, BuiltinPrefix); ok {
		if r.bundled == nil {
			return "", false
		}
		candidate := path.Join(rel, "templates")
		info, err := fs.Stat(r.bundled, candidate)
		if err != nil || !info.IsDir() {
			return "", false
		}
		return BuiltinPrefix + candidate, true
	}
	candidate := filepath.Join(dir, "templates")
	info, err := os.Stat(candidate)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return candidate, true
}
