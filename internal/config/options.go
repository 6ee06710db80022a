// Package config holds loosely typed option bags shared by loaders and
// commands. Options deliberately mirrors JSON config material: values come in
// as whatever the decoder produced, and accessors coerce with defaults.
package config

// Options is a free-form option map with typed accessors.
//
// Accessors never panic: a missing key or a value of the wrong type yields the
// provided default. This keeps loader call sites short and makes configs
// forward-compatible (unknown keys are ignored).
type Options map[string]any

// Any returns the raw value for key, or nil when absent.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// String returns the string value for key, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the bool value for key, or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// Int returns the int value for key, or def.
//
// JSON decoders produce float64 for numbers; both int and float64 are
// accepted.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Rune returns the first rune of the string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	s, ok := o[key].(string)
	if !ok || s == "" {
		return def
	}
	for _, r := range s {
		return r
	}
	return def
}

// StringMap returns the map value for key as map[string]string.
//
// Both map[string]string and map[string]any (JSON shape) are accepted;
// non-string values in the latter are skipped.
func (o Options) StringMap(key string) map[string]string {
	out := make(map[string]string)
	switch m := o[key].(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
