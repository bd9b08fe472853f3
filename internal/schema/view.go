package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// View is the "configuration view" of spec.md §3: a mapping-like object
// backed by a Schema, so Get transparently returns schema defaults when the
// user hasn't set a value, and typed accessors coerce per §3's rules.
type View struct {
	schema *Schema
	raw    map[string]any
	log    zerolog.Logger
}

func NewView(s *Schema, raw map[string]any, log zerolog.Logger) *View {
	if raw == nil {
		raw = map[string]any{}
	}
	return &View{schema: s, raw: raw, log: log}
}

// HasExplicit distinguishes schema defaults from user-set values.
func (v *View) HasExplicit(name string) bool {
	_, ok := v.raw[name]
	return ok
}

// Get returns: the raw value if set; else the schema default; else
// fallback. Mirrors spec.md §3's Configuration view.
func (v *View) Get(name string, fallback any) any {
	if val, ok := v.raw[name]; ok {
		return val
	}
	if v.schema != nil {
		if f, ok := v.schema.Field(name); ok && f.Default != nil {
			return f.Default
		}
	}
	return fallback
}

// GetString returns a string-typed value.
func (v *View) GetString(name, fallback string) string {
	val := v.Get(name, fallback)
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", val)
}

// GetBool coerces per spec.md §3's true|yes|on|1|enabled /
// false|no|off|0|disabled string rules (empty string is false).
func (v *View) GetBool(name string, fallback bool) bool {
	val := v.Get(name, fallback)
	switch x := val.(type) {
	case bool:
		return x
	case string:
		if b, ok := CoerceBool(x); ok {
			return b
		}
		v.log.Warn().Str("field", name).Str("value", x).Msg("config: invalid bool value, using fallback")
		return fallback
	default:
		return fallback
	}
}

// GetInt tolerates numeric strings and logs a warning on failure.
func (v *View) GetInt(name string, fallback int) int {
	val := v.Get(name, fallback)
	switch x := val.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
		v.log.Warn().Str("field", name).Str("value", x).Msg("config: invalid int value, using fallback")
		return fallback
	default:
		return fallback
	}
}

// GetFloat tolerates numeric strings and logs a warning on failure.
func (v *View) GetFloat(name string, fallback float64) float64 {
	val := v.Get(name, fallback)
	switch x := val.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
		v.log.Warn().Str("field", name).Str("value", x).Msg("config: invalid float value, using fallback")
		return fallback
	default:
		return fallback
	}
}

// GetList returns a []any, or an empty slice if unset/wrong type.
func (v *View) GetList(name string) []any {
	val := v.Get(name, nil)
	if l, ok := val.([]any); ok {
		return l
	}
	return nil
}

// Keys returns the view's explicitly-set top-level keys, sorted. Plugins
// with user-named sub-tables (e.g. one entry per scratchpad uid) use this
// to discover them, the same way pyprconf.Document.PluginNames() discovers
// the configured plugin list.
func (v *View) Keys() []string {
	out := make([]string, 0, len(v.raw))
	for k := range v.raw {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sub returns a nested View for a per-monitor or nested-dict override,
// falling back to this view's own schema-children if the raw dict is
// absent (spec.md §4.7's "monitor.<name>.<key>" override lookup uses this).
func (v *View) Sub(name string) *View {
	var childSchema *Schema
	if v.schema != nil {
		if f, ok := v.schema.Field(name); ok {
			childSchema = f.Children
		}
	}
	raw, _ := v.raw[name].(map[string]any)
	return NewView(childSchema, raw, v.log)
}

// Validate runs the backing schema's Validate over this view's raw values.
func (v *View) Validate() ValidationResult {
	if v.schema == nil {
		return ValidationResult{}
	}
	return v.schema.Validate(v.raw)
}
