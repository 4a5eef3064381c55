package plugin

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/berth/internal/domain/service"
)

// Marker is the kind every plugin declaration carries.
const Marker = "berth-plugin"

// Declaration is a plugin described as data in a YAML or TOML file. When
// Factory is set the declaration only points at a compiled constructor;
// otherwise it describes the whole plugin.
type Declaration struct {
	Kind        string   `yaml:"kind" toml:"kind"`
	Factory     string   `yaml:"factory,omitempty" toml:"factory,omitempty"`
	Name        string   `yaml:"name" toml:"name"`
	Version     string   `yaml:"version" toml:"version"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty"`
	Requires    []string `yaml:"requires,omitempty" toml:"requires,omitempty"`

	Config    []FieldDeclaration   `yaml:"config,omitempty" toml:"config,omitempty"`
	Services  []ServiceDeclaration `yaml:"services,omitempty" toml:"services,omitempty"`
	Hooks     []HookDeclaration    `yaml:"hooks,omitempty" toml:"hooks,omitempty"`
	Commands  []CommandDeclaration `yaml:"commands,omitempty" toml:"commands,omitempty"`
	Templates map[string]string    `yaml:"templates,omitempty" toml:"templates,omitempty"`
}

// FieldDeclaration declares one configuration field.
type FieldDeclaration struct {
	Name        string   `yaml:"name" toml:"name"`
	Type        string   `yaml:"type" toml:"type"`
	Default     any      `yaml:"default,omitempty" toml:"default,omitempty"`
	Nullable    bool     `yaml:"nullable,omitempty" toml:"nullable,omitempty"`
	Min         *int     `yaml:"min,omitempty" toml:"min,omitempty"`
	Max         *int     `yaml:"max,omitempty" toml:"max,omitempty"`
	Enum        []string `yaml:"enum,omitempty" toml:"enum,omitempty"`
	Label       string   `yaml:"label,omitempty" toml:"label,omitempty"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty"`
	Secret      bool     `yaml:"secret,omitempty" toml:"secret,omitempty"`
}

// ServiceDeclaration declares one service. Ports, version, environment
// values and command arguments may reference the plugin's settings as
// ${config.KEY}; a port is either an integer or such a reference.
type ServiceDeclaration struct {
	Name          string                  `yaml:"name" toml:"name"`
	Template      string                  `yaml:"template" toml:"template"`
	DisplayName   string                  `yaml:"display_name,omitempty" toml:"display_name,omitempty"`
	Description   string                  `yaml:"description,omitempty" toml:"description,omitempty"`
	Icon          string                  `yaml:"icon,omitempty" toml:"icon,omitempty"`
	Ports         []any                   `yaml:"ports,omitempty" toml:"ports,omitempty"`
	InternalPorts []int                   `yaml:"internal_ports,omitempty" toml:"internal_ports,omitempty"`
	Version       string                  `yaml:"version,omitempty" toml:"version,omitempty"`
	Environment   map[string]string       `yaml:"environment,omitempty" toml:"environment,omitempty"`
	HealthCheck   *HealthCheckDeclaration `yaml:"health_check,omitempty" toml:"health_check,omitempty"`
	Dump          []string                `yaml:"dump,omitempty" toml:"dump,omitempty"`
	Restore       []string                `yaml:"restore,omitempty" toml:"restore,omitempty"`
	Shell         []string                `yaml:"shell,omitempty" toml:"shell,omitempty"`
}

// HealthCheckDeclaration declares a service health check. Durations use
// Go syntax ("5s").
type HealthCheckDeclaration struct {
	Test     []string `yaml:"test,omitempty" toml:"test,omitempty"`
	Interval string   `yaml:"interval,omitempty" toml:"interval,omitempty"`
	Timeout  string   `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Retries  int      `yaml:"retries,omitempty" toml:"retries,omitempty"`
	Probe    string   `yaml:"probe,omitempty" toml:"probe,omitempty"`
	Path     string   `yaml:"path,omitempty" toml:"path,omitempty"`
}

// HookDeclaration runs a command at a lifecycle event. Run arguments may use
// ${project}, ${event}, ${service} and ${config.KEY}.
type HookDeclaration struct {
	Event    string   `yaml:"event" toml:"event"`
	Priority int      `yaml:"priority,omitempty" toml:"priority,omitempty"`
	Run      []string `yaml:"run" toml:"run"`
}

// CommandDeclaration contributes a CLI command that runs an argv. Extra
// command-line arguments are appended.
type CommandDeclaration struct {
	Name  string   `yaml:"name" toml:"name"`
	Short string   `yaml:"short,omitempty" toml:"short,omitempty"`
	Long  string   `yaml:"long,omitempty" toml:"long,omitempty"`
	Run   []string `yaml:"run" toml:"run"`
}

// ParseDeclaration decodes a declaration, choosing the format from the file
// extension of name.
func ParseDeclaration(name string, data []byte) (*Declaration, error) {
	var decl Declaration
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&decl); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&decl); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported declaration format %q", filepath.Ext(name))
	}
	return &decl, nil
}

// IsDeclarationFile reports whether name has a declaration file extension.
func IsDeclarationFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// Validate checks a data-only declaration.
func (d *Declaration) Validate() error {
	ve := &ValidationError{}

	if d.Kind != Marker {
		ve.Addf("kind must be %q", Marker)
	}
	if d.Name == "" {
		ve.Add("name is required")
	} else if err := validatePluginNameFormat(d.Name); err != nil {
		ve.Add(err.Error())
	}
	if d.Version == "" {
		ve.Add("version is required")
	}

	if _, err := d.schema(); err != nil {
		ve.Add(err.Error())
	}
	for i, s := range d.Services {
		if s.Name == "" {
			ve.Addf("services[%d]: name is required", i)
		}
		if s.Template == "" {
			ve.Addf("services[%d]: template is required", i)
		}
		if _, err := s.healthCheck(); err != nil {
			ve.Addf("services[%d]: %v", i, err)
		}
		for j, port := range s.Ports {
			if !validPort(port) {
				ve.Addf("services[%d]: ports[%d]: %v is neither a port number nor a ${config.KEY} reference", i, j, port)
			}
		}
	}
	for i, h := range d.Hooks {
		if !Event(h.Event).Valid() {
			ve.Addf("hooks[%d]: unknown event %q", i, h.Event)
		}
		if len(h.Run) == 0 {
			ve.Addf("hooks[%d]: run is required", i)
		}
	}
	for i, c := range d.Commands {
		if c.Name == "" {
			ve.Addf("commands[%d]: name is required", i)
		}
		if len(c.Run) == 0 {
			ve.Addf("commands[%d]: run is required", i)
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func (d *Declaration) schema() (*Schema, error) {
	schema := NewSchema()
	for _, f := range d.Config {
		schema.Add(Field{
			Name:        f.Name,
			Type:        FieldType(f.Type),
			Default:     f.Default,
			Nullable:    f.Nullable,
			Min:         f.Min,
			Max:         f.Max,
			Enum:        f.Enum,
			Label:       f.Label,
			Description: f.Description,
			Secret:      f.Secret,
		})
	}
	if err := schema.Check(); err != nil {
		return nil, err
	}
	return schema, nil
}

// TemplateOverrides resolves the declared overrides against dir, the
// directory holding the declaration. Overrides are sorted by original name.
func (d *Declaration) TemplateOverrides(dir string) []TemplateOverride {
	originals := make([]string, 0, len(d.Templates))
	for original := range d.Templates {
		originals = append(originals, original)
	}
	sort.Strings(originals)

	out := make([]TemplateOverride, 0, len(originals))
	for _, original := range originals {
		out = append(out, TemplateOverride{
			Original: original,
			Override: resolveRelative(dir, d.Templates[original]),
		})
	}
	return out
}

func resolveRelative(dir, p string) string {
	if dir == "" || filepath.IsAbs(p) {
		return p
	}
	if rel, ok := strings.CutPrefix(dir, BuiltinPrefix); ok {
		return BuiltinPrefix + path.Join(rel, p)
	}
	return filepath.Join(dir, p)
}

func (s ServiceDeclaration) healthCheck() (*service.HealthCheck, error) {
	if s.HealthCheck == nil {
		return nil, nil
	}
	hc := &service.HealthCheck{
		Test:    append([]string(nil), s.HealthCheck.Test...),
		Retries: s.HealthCheck.Retries,
		Probe:   s.HealthCheck.Probe,
		Path:    s.HealthCheck.Path,
	}
	var err error
	if s.HealthCheck.Interval != "" {
		if hc.Interval, err = time.ParseDuration(s.HealthCheck.Interval); err != nil {
			return nil, fmt.Errorf("invalid health check interval: %w", err)
		}
	}
	if s.HealthCheck.Timeout != "" {
		if hc.Timeout, err = time.ParseDuration(s.HealthCheck.Timeout); err != nil {
			return nil, fmt.Errorf("invalid health check timeout: %w", err)
		}
	}
	return hc, nil
}

// definition builds the service definition, resolving ${config.KEY}
// references against cfg. An environment entry that is a lone reference to
// an unset setting is dropped.
func (s ServiceDeclaration) definition(cfg Config) service.Definition {
	expand := func(v string) string {
		return service.Expand(v, func(key string) (string, bool) {
			return configValue(cfg, key)
		})
	}

	hc, _ := s.healthCheck()
	def := service.Definition{
		Name:          s.Name,
		Template:      s.Template,
		DisplayName:   s.DisplayName,
		Description:   s.Description,
		Icon:          s.Icon,
		InternalPorts: slices.Clone(s.InternalPorts),
		Version:       expand(s.Version),
		HealthCheck:   hc,
	}
	for _, port := range s.Ports {
		def.Ports = append(def.Ports, resolvePort(port, expand))
	}
	if s.Environment != nil {
		def.Environment = make(map[string]string, len(s.Environment))
		for key, raw := range s.Environment {
			v := expand(raw)
			if v == "" && raw != "" {
				continue
			}
			def.Environment[key] = v
		}
	}
	if len(s.Dump) > 0 {
		def.Dump = service.ArgvTemplate(s.Name+".dump", expandAll(s.Dump, expand)...)
	}
	if len(s.Restore) > 0 {
		def.Restore = service.ArgvTemplate(s.Name+".restore", expandAll(s.Restore, expand)...)
	}
	if len(s.Shell) > 0 {
		def.Shell = service.ArgvTemplate(s.Name+".shell", expandAll(s.Shell, expand)...)
	}
	return def
}

// configValue resolves a config.KEY placeholder. Other keys are left for
// later expansion stages; a null or missing setting resolves to "".
func configValue(cfg Config, key string) (string, bool) {
	name, ok := strings.CutPrefix(key, "config.")
	if !ok {
		return "", false
	}
	if v, ok := cfg.Get(name); ok && v != nil {
		return fmt.Sprint(v), true
	}
	return "", true
}

func expandAll(argv []string, expand func(string) string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = expand(arg)
	}
	return out
}

func validPort(v any) bool {
	if n, ok := toInt(v); ok {
		return n >= 0 && n <= 65535
	}
	str, ok := v.(string)
	if !ok {
		return false
	}
	if strings.Contains(str, "${") {
		return true
	}
	_, err := strconv.Atoi(str)
	return err == nil
}

// resolvePort returns 0 for a reference that does not resolve to a number.
func resolvePort(v any, expand func(string) string) int {
	if n, ok := toInt(v); ok {
		return n
	}
	str, _ := v.(string)
	n, err := strconv.Atoi(strings.TrimSpace(expand(str)))
	if err != nil {
		return 0
	}
	return n
}

// validatePluginNameFormat validates the plugin name format.
// Names must be 2-64 characters, start with a letter, and contain only
// letters, digits, hyphens and underscores.
func validatePluginNameFormat(name string) error {
	if len(name) < 2 {
		return fmt.Errorf("plugin name %q is too short (minimum 2 characters)", name)
	}
	if len(name) > 64 {
		return fmt.Errorf("plugin name %q is too long (maximum 64 characters)", name)
	}

	first := name[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return fmt.Errorf("plugin name %q must start with a letter", name)
	}

	for i, c := range name {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !isDigit && c != '-' && c != '_' {
			return fmt.Errorf("plugin name %q contains invalid character %q at position %d", name, c, i)
		}
	}
	return nil
}
