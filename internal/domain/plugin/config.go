package plugin

import (
	"maps"
	"slices"
)

// Config is an immutable, validated plugin configuration.
type Config struct {
	values map[string]any
}

// NewConfig copies raw into a Config without validation. It is used for
// plugins that declare no schema.
func NewConfig(raw map[string]any) Config {
	return Config{values: deepCopyMap(raw)}
}

// Get returns the value for key and whether it is present.
func (c Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Int returns the integer value for key, or 0.
func (c Config) Int(key string) int {
	if n, ok := toInt(c.values[key]); ok {
		return n
	}
	return 0
}

// String returns the string value for key, or "".
func (c Config) String(key string) string {
	s, _ := c.values[key].(string)
	return s
}

// Bool returns the boolean value for key, or false.
func (c Config) Bool(key string) bool {
	b, _ := c.values[key].(bool)
	return b
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns the configuration keys in sorted order.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// All returns a copy of the configuration values.
func (c Config) All() map[string]any {
	return deepCopyMap(c.values)
}

// Len returns the number of values.
func (c Config) Len() int {
	return len(c.values)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	}
	return v
}
