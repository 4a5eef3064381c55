package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Loader reads berth.yaml files.
type Loader struct {
	lookup LookupFunc
}

// NewLoader creates a loader that resolves ${VAR} references from lookup,
// overlaid with the project's .env file. A nil lookup uses os.LookupEnv.
func NewLoader(lookup LookupFunc) *Loader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Loader{lookup: lookup}
}

// Load reads <root>/berth.yaml.
func (l *Loader) Load(root string) (*Project, error) {
	return l.LoadFile(root, filepath.Join(root, FileName))
}

// LoadFile reads the configuration at path for the project in root.
func (l *Loader) LoadFile(root, path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewConfigNotFoundError(path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	dotenv, err := readDotEnv(filepath.Join(root, ".env"))
	if err != nil {
		return nil, NewInvalidConfigError(filepath.Join(root, ".env"), "failed to parse .env file").WithUnderlying(err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := dotenv[key]; ok {
			return v, true
		}
		return l.lookup(key)
	}

	project, err := Parse(data, lookup)
	if err != nil {
		var ue *UserError
		if errors.As(err, &ue) {
			ue.Context = path
			return nil, ue
		}
		return nil, NewYAMLParseError(path, err)
	}
	project.Root = root
	project.Path = path
	return project, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return godotenv.Read(path)
}

// Parse decodes berth.yaml content, expanding ${VAR} and ${VAR:-default}
// references in scalar values through lookup.
func Parse(data []byte, lookup LookupFunc) (*Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	project := &Project{
		Services: map[string]ServiceOverride{},
		Plugins:  map[string]map[string]any{},
		Raw:      map[string]any{},
	}
	if len(doc.Content) == 0 {
		return project, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, NewInvalidConfigError("", "berth.yaml must be a mapping of settings")
	}
	expandNode(root, lookup)

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "name":
			if err := value.Decode(&project.Name); err != nil {
				return nil, err
			}
		case "compose_file":
			if err := value.Decode(&project.ComposeFile); err != nil {
				return nil, err
			}
		case "services":
			if err := value.Decode(&project.Services); err != nil {
				return nil, err
			}
			if project.Services == nil {
				project.Services = map[string]ServiceOverride{}
			}
		case "plugins":
			project.Plugins = parsePlugins(value)
		}

		var raw any
		if err := value.Decode(&raw); err != nil {
			return nil, err
		}
		project.Raw[key.Value] = raw
	}
	return project, nil
}

// parsePlugins reads the plugins section. Entries whose key is not a string
// or whose value is not a mapping are dropped, as are non-string setting
// keys.
func parsePlugins(node *yaml.Node) map[string]map[string]any {
	plugins := map[string]map[string]any{}
	if node.Kind != yaml.MappingNode {
		return plugins
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !isStringKey(key) || value.Kind != yaml.MappingNode {
			continue
		}
		settings := map[string]any{}
		for j := 0; j+1 < len(value.Content); j += 2 {
			sk, sv := value.Content[j], value.Content[j+1]
			if !isStringKey(sk) {
				continue
			}
			var v any
			if err := sv.Decode(&v); err != nil {
				continue
			}
			settings[sk.Value] = v
		}
		plugins[key.Value] = settings
	}
	return plugins
}

func isStringKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandNode substitutes environment references in every scalar value.
// Only the ${NAME} form is expanded so that literal '$' survives.
func expandNode(n *yaml.Node, lookup LookupFunc) {
	if n.Kind == yaml.ScalarNode {
		if !envRef.MatchString(n.Value) {
			return
		}
		n.Value = envRef.ReplaceAllStringFunc(n.Value, func(ref string) string {
			m := envRef.FindStringSubmatch(ref)
			if v, ok := lookup(m[1]); ok && v != "" {
				return v
			}
			return m[3]
		})
		// Plain scalars are re-resolved, so "${PORT}" can become an int.
		if n.Style == 0 {
			n.Tag = ""
		}
		return
	}
	for _, child := range n.Content {
		expandNode(child, lookup)
	}
}
