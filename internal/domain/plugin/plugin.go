// Package plugin discovers berth plugins from their three sources (bundled,
// project-local and package-manager installed), validates their
// configuration, and exposes their contributions (services, commands,
// lifecycle hooks and template overrides) through a single Registry.
package plugin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/berth/internal/domain/service"
	"github.com/felixgeelhaar/berth/internal/ports"
)

// Source identifies where a plugin was discovered.
type Source string

const (
	// SourceBundled plugins ship inside the berth binary.
	SourceBundled Source = "bundled"
	// SourceLocal plugins live in the project's .berth/plugins directory.
	SourceLocal Source = "local"
	// SourcePackage plugins are installed through the project's package
	// manager.
	SourcePackage Source = "package"
)

// BuiltinPrefix marks provenance directories inside the embedded bundle.
const BuiltinPrefix = "builtin:"

// Descriptor is the identity metadata a plugin declares.
type Descriptor struct {
	// Name is the unique plugin key (e.g., "mailpit").
	Name string
	// Version is the plugin version, usually semantic (e.g., "1.2.0").
	Version string
	// Description is a one-line summary.
	Description string
	// Requires lists dependency constraints such as "berth >=0.4.0".
	// They are informational only.
	Requires []string
}

// String returns "name@version".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s@%s", d.Name, d.Version)
}

// Clone returns a deep copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	clone := d
	if d.Requires != nil {
		clone.Requires = append([]string(nil), d.Requires...)
	}
	return clone
}

// Plugin is the minimum contract every plugin satisfies. Further
// contributions are expressed through the optional capability interfaces
// below and detected by type assertion.
type Plugin interface {
	Descriptor() Descriptor
}

// Configurable plugins declare the settings they accept.
type Configurable interface {
	ConfigSchema() *Schema
}

// ServiceProvider plugins contribute services to the environment.
type ServiceProvider interface {
	Services(cfg Config) []service.Definition
}

// CommandProvider plugins contribute CLI commands.
type CommandProvider interface {
	Commands(env CommandEnv) []*cobra.Command
}

// HookProvider plugins run handlers at lifecycle events.
type HookProvider interface {
	Hooks(cfg Config) []Hook
}

// TemplateOverrider plugins replace core templates.
type TemplateOverrider interface {
	TemplateOverrides() []TemplateOverride
}

// CommandEnv is what a plugin's commands may rely on at run time.
type CommandEnv struct {
	ProjectRoot string
	Config      Config
	Runner      ports.CommandRunner
	Logger      ports.Logger
}

// Base implements Plugin from static fields. Embed it in concrete plugins.
type Base struct {
	Name        string
	Version     string
	Description string
	Requires    []string
}

// Descriptor returns the plugin's identity metadata.
func (b Base) Descriptor() Descriptor {
	return Descriptor{
		Name:        b.Name,
		Version:     b.Version,
		Description: b.Description,
		Requires:    append([]string(nil), b.Requires...),
	}
}

// LoadedPlugin is a registered plugin together with its validated
// configuration and provenance. The Registry owns it; treat it as read-only.
type LoadedPlugin struct {
	Plugin     Plugin
	Descriptor Descriptor
	Config     Config
	Source     Source
	// Dir is the directory the plugin was found in, prefixed with
	// BuiltinPrefix for bundled plugins. It may be empty.
	Dir string
}

// Name returns the registered plugin name.
func (lp *LoadedPlugin) Name() string {
	return lp.Descriptor.Name
}

// Schema returns the plugin's config schema, or nil.
func (lp *LoadedPlugin) Schema() *Schema {
	if c, ok := lp.Plugin.(Configurable); ok {
		return c.ConfigSchema()
	}
	return nil
}

// Capabilities lists the optional capabilities the plugin exposes.
func (lp *LoadedPlugin) Capabilities() []string {
	var caps []string
	if s := lp.Schema(); s != nil && s.Len() > 0 {
		caps = append(caps, "config")
	}
	if _, ok := lp.Plugin.(ServiceProvider); ok {
		caps = append(caps, "services")
	}
	if _, ok := lp.Plugin.(CommandProvider); ok {
		caps = append(caps, "commands")
	}
	if _, ok := lp.Plugin.(HookProvider); ok {
		caps = append(caps, "hooks")
	}
	if _, ok := lp.Plugin.(TemplateOverrider); ok {
		caps = append(caps, "templates")
	}
	return caps
}
