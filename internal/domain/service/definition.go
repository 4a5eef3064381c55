package service

import (
	"regexp"
	"strconv"
	"strings"
)

// Definition is a service declared by a plugin as plain data. Adapt wraps it
// so it satisfies Service (or DatabaseService).
type Definition struct {
	Name        string
	Template    string
	DisplayName string
	Description string
	Icon        string
	// Ports are the host-side ports; the first is the primary port.
	Ports []int
	// InternalPorts are the container-side ports, index-aligned with Ports.
	InternalPorts []int
	Version       string
	Environment   map[string]string
	HealthCheck   *HealthCheck

	Dump    CommandTemplate
	Restore CommandTemplate
	Shell   CommandTemplate
}

// IsDatabase reports whether the definition carries any database command
// template.
func (d Definition) IsDatabase() bool {
	return !d.Dump.IsZero() || !d.Restore.IsZero() || !d.Shell.IsZero()
}

// CommandFunc builds an argv from a service config. It must be pure.
type CommandFunc func(cfg Config) []string

// CommandTemplate is a named, pure argv builder. The zero value is an unset
// template.
type CommandTemplate struct {
	name string
	fn   CommandFunc
}

// NewCommandTemplate wraps fn under name.
func NewCommandTemplate(name string, fn CommandFunc) CommandTemplate {
	return CommandTemplate{name: name, fn: fn}
}

// ArgvTemplate returns a template that expands placeholders in argv:
// ${name}, ${type}, ${version}, ${port}, ${port.N} (additional port N,
// zero-based) and ${env.KEY}. Unknown placeholders expand to "". A bare
// $NAME is passed through for the shell inside the container.
func ArgvTemplate(name string, argv ...string) CommandTemplate {
	argv = append([]string(nil), argv...)
	return NewCommandTemplate(name, func(cfg Config) []string {
		out := make([]string, len(argv))
		for i, arg := range argv {
			out[i] = Expand(arg, func(key string) (string, bool) {
				return lookupPlaceholder(cfg, key), true
			})
		}
		return out
	})
}

var placeholder = regexp.MustCompile(`\$\{([^{}]+)\}`)

// Expand replaces ${key} references in s with the value mapping returns.
// References mapping does not resolve are left as written.
func Expand(s string, mapping func(key string) (string, bool)) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(ref string) string {
		if v, ok := mapping(ref[2 : len(ref)-1]); ok {
			return v
		}
		return ref
	})
}

func lookupPlaceholder(cfg Config, key string) string {
	switch key {
	case "name":
		return cfg.Name
	case "type":
		return cfg.Type
	case "version":
		return cfg.Version
	case "port":
		return strconv.Itoa(cfg.Port)
	}
	if env, ok := strings.CutPrefix(key, "env."); ok {
		return cfg.Environment[env]
	}
	if idx, ok := strings.CutPrefix(key, "port."); ok {
		n, err := strconv.Atoi(idx)
		if err == nil && n >= 0 && n < len(cfg.AdditionalPorts) {
			return strconv.Itoa(cfg.AdditionalPorts[n])
		}
	}
	return ""
}

// Name returns the template's name.
func (t CommandTemplate) Name() string { return t.name }

// IsZero reports whether the template is unset.
func (t CommandTemplate) IsZero() bool { return t.fn == nil }

// Render builds the argv for cfg. An unset template renders nil.
func (t CommandTemplate) Render(cfg Config) []string {
	if t.fn == nil {
		return nil
	}
	return t.fn(cfg.Clone())
}
