package service

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PluginService adapts a plugin-declared Definition to Service.
type PluginService struct {
	plugin string
	def    Definition
}

// NewPluginService wraps def, declared by the named plugin.
func NewPluginService(pluginName string, def Definition) *PluginService {
	return &PluginService{plugin: pluginName, def: cloneDefinition(def)}
}

// Adapt wraps def in the database variant when it carries any database
// command template, and in the plain variant otherwise.
func Adapt(pluginName string, def Definition) Service {
	if def.IsDatabase() {
		return NewPluginDatabaseService(pluginName, def)
	}
	return NewPluginService(pluginName, def)
}

// Plugin returns the name of the plugin that declared the service.
func (s *PluginService) Plugin() string { return s.plugin }

// Name returns the service name.
func (s *PluginService) Name() string { return s.def.Name }

// DisplayName returns the declared display name, or the titleized service
// name.
func (s *PluginService) DisplayName() string {
	if s.def.DisplayName != "" {
		return s.def.DisplayName
	}
	return Titleize(s.def.Name)
}

// Description returns the service description.
func (s *PluginService) Description() string { return s.def.Description }

// Icon returns the display icon, which may be empty.
func (s *PluginService) Icon() string { return s.def.Icon }

// DefaultConfig returns the declared defaults. The first declared port is
// the primary port (0 when none) and the rest become additional ports.
func (s *PluginService) DefaultConfig() Config {
	cfg := Config{
		Name:        s.def.Name,
		Enabled:     true,
		Type:        s.def.Name,
		Version:     s.def.Version,
		Environment: maps.Clone(s.def.Environment),
	}
	if cfg.Version == "" {
		cfg.Version = "latest"
	}
	if cfg.Environment == nil {
		cfg.Environment = map[string]string{}
	}
	if len(s.def.Ports) > 0 {
		cfg.Port = s.def.Ports[0]
		cfg.AdditionalPorts = append([]int{}, s.def.Ports[1:]...)
	} else {
		cfg.AdditionalPorts = []int{}
	}
	return cfg
}

// InternalPorts returns the container-side ports.
func (s *PluginService) InternalPorts() []int {
	return append([]int(nil), s.def.InternalPorts...)
}

// GenerateComposeConfig returns a fragment referencing the plugin's template.
func (s *PluginService) GenerateComposeConfig(cfg Config) ComposeFragment {
	return ComposeFragment{
		Plugin:   s.plugin,
		Service:  s.def.Name,
		Template: s.def.Template,
		Config:   cfg.Clone(),
	}
}

// HealthCheck returns a copy of the declared health check, or nil.
func (s *PluginService) HealthCheck() *HealthCheck {
	if s.def.HealthCheck == nil {
		return nil
	}
	hc := *s.def.HealthCheck
	hc.Test = append([]string(nil), hc.Test...)
	return &hc
}

// PluginDatabaseService adapts a Definition with database command templates
// to DatabaseService.
type PluginDatabaseService struct {
	*PluginService
}

// NewPluginDatabaseService wraps def, declared by the named plugin.
func NewPluginDatabaseService(pluginName string, def Definition) *PluginDatabaseService {
	return &PluginDatabaseService{PluginService: NewPluginService(pluginName, def)}
}

// DumpCommand renders the dump template.
func (s *PluginDatabaseService) DumpCommand(cfg Config) []string {
	return s.def.Dump.Render(cfg)
}

// RestoreCommand renders the restore template.
func (s *PluginDatabaseService) RestoreCommand(cfg Config) []string {
	return s.def.Restore.Render(cfg)
}

// ShellCommand renders the shell template.
func (s *PluginDatabaseService) ShellCommand(cfg Config) []string {
	return s.def.Shell.Render(cfg)
}

// Titleize turns a service name such as "redis-commander" into
// "Redis Commander".
func Titleize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func cloneDefinition(def Definition) Definition {
	clone := def
	clone.Ports = slices.Clone(def.Ports)
	clone.InternalPorts = slices.Clone(def.InternalPorts)
	clone.Environment = maps.Clone(def.Environment)
	if def.HealthCheck != nil {
		hc := *def.HealthCheck
		hc.Test = slices.Clone(hc.Test)
		clone.HealthCheck = &hc
	}
	return clone
}

var (
	_ Service         = (*PluginService)(nil)
	_ DatabaseService = (*PluginDatabaseService)(nil)
)
