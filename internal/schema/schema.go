// Package schema implements the typed field schema and validator described
// in spec.md §4.3: an ordered sequence of fields, each carrying a type,
// required/recommended flags, default, description, optional choices list,
// optional custom validator, and optional nested children for dict-typed
// fields.
//
// Grounded on bnema-waymon's internal/config/config.go struct-of-sections
// shape for the *data* a schema describes (Server/Client/Display/Input
// sections each with typed fields), reimplemented as an explicit ordered
// field list because mapstructure struct tags can't express "ordered
// fields + fuzzy-match unknown keys", which spec.md requires.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Type is a field's expected value type. A field may accept a union by
// listing multiple Types in Field.Types.
type Type int

const (
	TBool Type = iota
	TInt
	TFloat
	TString
	TList
	TDict
)

func (t Type) String() string {
	switch t {
	case TBool:
		return "bool"
	case TInt:
		return "int"
	case TFloat:
		return "float"
	case TString:
		return "string"
	case TList:
		return "list"
	case TDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Validator is a custom field validator returning a list of error strings.
type Validator func(value any) []string

// Field describes one schema entry.
type Field struct {
	Name        string
	Types       []Type
	Required    bool
	Recommended bool
	Default     any
	Description string
	Choices     []string
	Custom      Validator
	Children    *Schema // set when TDict is among Types
}

// Accepts reports whether t is one of the field's allowed types.
func (f Field) Accepts(t Type) bool {
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}

// Schema is an ordered sequence of fields (order matters for help/doc
// output per spec.md §3's command registry / doc commands).
type Schema struct {
	Fields []Field
}

func New(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Field looks up a field by name, or returns (Field{}, false).
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns all known field names, in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// ValidationResult collects errors, warnings, and fuzzy suggestions from a
// validation pass.
type ValidationResult struct {
	Errors      []string
	Warnings    []string
	Suggestions map[string]string // unknown key -> nearest known key
}

func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate implements the five-step validation pipeline of spec.md §4.3.
func (s *Schema) Validate(values map[string]any) ValidationResult {
	res := ValidationResult{Suggestions: map[string]string{}}

	// 1. required fields present
	for _, f := range s.Fields {
		if f.Required {
			if _, ok := values[f.Name]; !ok {
				res.Errors = append(res.Errors, fmt.Sprintf("missing required field %q", f.Name))
			}
		} else if f.Recommended {
			if _, ok := values[f.Name]; !ok {
				res.Warnings = append(res.Warnings, fmt.Sprintf("recommended field %q not set", f.Name))
			}
		}
	}

	// 2-4. type-check, choices, custom validator
	for name, raw := range values {
		f, known := s.Field(name)
		if !known {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown key %q", name))
			if suggestion, ok := nearestKey(name, s.Names()); ok {
				res.Suggestions[name] = suggestion
			}
			continue
		}

		actual, ok := coerceType(raw, f.Types)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("field %q: expected %s, got %T", name, typeListString(f.Types), raw))
			continue
		}

		if f.Custom != nil {
			for _, msg := range f.Custom(actual) {
				res.Errors = append(res.Errors, fmt.Sprintf("field %q: %s", name, msg))
			}
		} else if len(f.Choices) > 0 {
			str, isStr := actual.(string)
			if isStr && !contains(f.Choices, str) {
				res.Errors = append(res.Errors, fmt.Sprintf("field %q: %q is not one of %v", name, str, f.Choices))
			}
		}

		if f.Children != nil {
			if nested, isMap := actual.(map[string]any); isMap {
				childRes := f.Children.Validate(nested)
				for _, e := range childRes.Errors {
					res.Errors = append(res.Errors, fmt.Sprintf("%s.%s", name, e))
				}
				for _, w := range childRes.Warnings {
					res.Warnings = append(res.Warnings, fmt.Sprintf("%s.%s", name, w))
				}
				for k, v := range childRes.Suggestions {
					res.Suggestions[name+"."+k] = v
				}
			}
		}
	}

	return res
}

func typeListString(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, "|")
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// coerceType attempts to coerce raw into one of the allowed types, matching
// spec.md §3's typed-accessor coercion rules (bool accepts the
// true|yes|on|1|enabled / false|no|off|0|disabled strings; int/float accept
// numeric strings).
func coerceType(raw any, types []Type) (any, bool) {
	for _, t := range types {
		switch t {
		case TBool:
			if b, ok := raw.(bool); ok {
				return b, true
			}
			if s, ok := raw.(string); ok {
				if b, ok := CoerceBool(s); ok {
					return b, true
				}
			}
		case TInt:
			switch v := raw.(type) {
			case int:
				return v, true
			case int64:
				return int(v), true
			case float64:
				if v == float64(int(v)) {
					return int(v), true
				}
			case string:
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					return n, true
				}
			}
		case TFloat:
			switch v := raw.(type) {
			case float64:
				return v, true
			case int:
				return float64(v), true
			case string:
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					return f, true
				}
			}
		case TString:
			if s, ok := raw.(string); ok {
				return s, true
			}
		case TList:
			if l, ok := raw.([]any); ok {
				return l, true
			}
		case TDict:
			if m, ok := raw.(map[string]any); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// CoerceBool implements spec.md §3's get_bool string coercion rules.
func CoerceBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1", "enabled":
		return true, true
	case "false", "no", "off", "0", "disabled", "":
		return false, true
	default:
		return false, false
	}
}

// nearestKey finds the known key with the smallest Levenshtein distance to
// name, matching spec.md §4.3's "fuzzy suggestion computed by nearest
// string from the known-keys set". No fuzzy-match library appears anywhere
// in the example pack (see DESIGN.md), so this is a small self-contained
// Levenshtein implementation.
func nearestKey(name string, known []string) (string, bool) {
	if len(known) == 0 {
		return "", false
	}
	best := known[0]
	bestDist := levenshtein(name, best)
	for _, k := range known[1:] {
		if d := levenshtein(name, k); d < bestDist {
			bestDist = d
			best = k
		}
	}
	// Only suggest when it's plausibly a typo, not a wildly different key.
	maxLen := len(name)
	if len(best) > maxLen {
		maxLen = len(best)
	}
	if maxLen == 0 || bestDist > (maxLen+1)/2 {
		return "", false
	}
	return best, true
}

func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	la, lb := len(ar), len(br)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// SortedUnknownKeys is a small helper for deterministic warning order in
// tests and CLI output.
func SortedUnknownKeys(res ValidationResult) []string {
	keys := make([]string, 0, len(res.Suggestions))
	for k := range res.Suggestions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
