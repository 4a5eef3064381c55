// Package config loads the project configuration file, berth.yaml.
package config

import (
	"maps"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/berth/internal/domain/service"
)

// FileName is the project configuration file name.
const FileName = "berth.yaml"

// DefaultComposeFile is the compose file generated for a project.
const DefaultComposeFile = ".berth/docker-compose.yml"

// ServiceOverride adjusts one service of the project.
type ServiceOverride struct {
	Enabled     *bool             `yaml:"enabled,omitempty"`
	Version     string            `yaml:"version,omitempty"`
	Port        int               `yaml:"port,omitempty"`
	Ports       []int             `yaml:"ports,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Project is a parsed berth.yaml.
type Project struct {
	Name        string
	ComposeFile string
	Services    map[string]ServiceOverride
	// Plugins maps plugin names to their raw settings.
	Plugins map[string]map[string]any
	// Raw holds every top-level key, including ones berth does not read.
	Raw map[string]any

	// Root is the project directory; Path the file it was loaded from.
	Root string
	Path string
}

// PluginConfig returns the raw settings for the named plugin, or nil.
func (p *Project) PluginConfig(name string) map[string]any {
	return p.Plugins[name]
}

// ServiceConfig applies the project's override for svc to its defaults.
func (p *Project) ServiceConfig(svc service.Service) service.Config {
	cfg := svc.DefaultConfig()
	o, ok := p.Services[svc.Name()]
	if !ok {
		return cfg
	}
	if o.Enabled != nil {
		cfg.Enabled = *o.Enabled
	}
	if o.Version != "" {
		cfg.Version = o.Version
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if len(o.Ports) > 0 {
		cfg.AdditionalPorts = append([]int(nil), o.Ports...)
	}
	if len(o.Environment) > 0 {
		if cfg.Environment == nil {
			cfg.Environment = make(map[string]string, len(o.Environment))
		}
		maps.Copy(cfg.Environment, o.Environment)
	}
	return cfg
}

// NewProject returns the configuration written by 'berth init'.
func NewProject(name string) *Project {
	return &Project{
		Name:        name,
		ComposeFile: DefaultComposeFile,
		Services:    map[string]ServiceOverride{},
		Plugins:     map[string]map[string]any{},
	}
}

// Marshal renders the project as YAML. Unknown raw keys are preserved.
func (p *Project) Marshal() ([]byte, error) {
	out := make(map[string]any, len(p.Raw)+4)
	maps.Copy(out, p.Raw)
	out["name"] = p.Name
	if p.ComposeFile != "" {
		out["compose_file"] = p.ComposeFile
	}
	if len(p.Services) > 0 {
		out["services"] = p.Services
	} else {
		delete(out, "services")
	}
	plugins := make(map[string]any, len(p.Plugins))
	for name, settings := range p.Plugins {
		plugins[name] = settings
	}
	out["plugins"] = plugins
	return yaml.Marshal(out)
}
