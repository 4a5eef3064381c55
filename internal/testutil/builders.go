package testutil

import (
	"gopkg.in/yaml.v3"
)

// ProjectBuilder builds berth.yaml documents.
type ProjectBuilder struct {
	name        string
	composeFile string
	services    map[string]map[string]any
	plugins     map[string]map[string]any
}

// NewProjectBuilder creates a builder for a project called name.
func NewProjectBuilder(name string) *ProjectBuilder {
	return &ProjectBuilder{
		name:     name,
		services: make(map[string]map[string]any),
		plugins:  make(map[string]map[string]any),
	}
}

// WithComposeFile sets compose_file.
func (b *ProjectBuilder) WithComposeFile(file string) *ProjectBuilder {
	b.composeFile = file
	return b
}

// WithService sets one override key of a service.
func (b *ProjectBuilder) WithService(service, key string, value any) *ProjectBuilder {
	if b.services[service] == nil {
		b.services[service] = make(map[string]any)
	}
	b.services[service][key] = value
	return b
}

// WithPlugin sets one setting of a plugin.
func (b *ProjectBuilder) WithPlugin(plugin, key string, value any) *ProjectBuilder {
	if b.plugins[plugin] == nil {
		b.plugins[plugin] = make(map[string]any)
	}
	b.plugins[plugin][key] = value
	return b
}

// ToYAML renders the project.
func (b *ProjectBuilder) ToYAML() string {
	doc := map[string]any{"name": b.name}
	if b.composeFile != "" {
		doc["compose_file"] = b.composeFile
	}
	if len(b.services) > 0 {
		doc["services"] = b.services
	}
	if len(b.plugins) > 0 {
		doc["plugins"] = b.plugins
	}
	return mustYAML(doc)
}

// DeclarationBuilder builds plugin declaration files.
type DeclarationBuilder struct {
	doc map[string]any
}

// NewDeclarationBuilder creates a declaration for the named plugin.
func NewDeclarationBuilder(name, version string) *DeclarationBuilder {
	return &DeclarationBuilder{doc: map[string]any{
		"kind":    "berth-plugin",
		"name":    name,
		"version": version,
	}}
}

// WithKind overrides the kind marker.
func (b *DeclarationBuilder) WithKind(kind string) *DeclarationBuilder {
	b.doc["kind"] = kind
	return b
}

// WithFactory names the registered constructor to use.
func (b *DeclarationBuilder) WithFactory(id string) *DeclarationBuilder {
	b.doc["factory"] = id
	return b
}

// WithDescription sets the description.
func (b *DeclarationBuilder) WithDescription(desc string) *DeclarationBuilder {
	b.doc["description"] = desc
	return b
}

// WithRequires adds requirement strings such as "berth >=0.1.0".
func (b *DeclarationBuilder) WithRequires(reqs ...string) *DeclarationBuilder {
	b.appendList("requires", toAny(reqs)...)
	return b
}

// WithField adds a config field. Extra keys such as min, max, enum or secret
// are copied as given.
func (b *DeclarationBuilder) WithField(name, typ string, def any, extra map[string]any) *DeclarationBuilder {
	field := map[string]any{"name": name, "type": typ}
	if def != nil {
		field["default"] = def
	}
	for k, v := range extra {
		field[k] = v
	}
	b.appendList("config", field)
	return b
}

// WithService adds a service declaration.
func (b *DeclarationBuilder) WithService(service map[string]any) *DeclarationBuilder {
	b.appendList("services", service)
	return b
}

// WithHook adds a lifecycle hook running argv.
func (b *DeclarationBuilder) WithHook(event string, priority int, argv ...string) *DeclarationBuilder {
	b.appendList("hooks", map[string]any{"event": event, "priority": priority, "run": argv})
	return b
}

// WithCommand adds a command running argv.
func (b *DeclarationBuilder) WithCommand(name, short string, argv ...string) *DeclarationBuilder {
	cmd := map[string]any{"name": name, "run": argv}
	if short != "" {
		cmd["short"] = short
	}
	b.appendList("commands", cmd)
	return b
}

// WithTemplate overrides a template with a path relative to the plugin.
func (b *DeclarationBuilder) WithTemplate(original, override string) *DeclarationBuilder {
	templates, _ := b.doc["templates"].(map[string]any)
	if templates == nil {
		templates = make(map[string]any)
		b.doc["templates"] = templates
	}
	templates[original] = override
	return b
}

// ToYAML renders the declaration.
func (b *DeclarationBuilder) ToYAML() string {
	return mustYAML(b.doc)
}

func (b *DeclarationBuilder) appendList(key string, items ...any) {
	list, _ := b.doc[key].([]any)
	b.doc[key] = append(list, items...)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func mustYAML(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
