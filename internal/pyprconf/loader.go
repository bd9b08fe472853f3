// Package pyprconf implements the configuration loader of spec.md §4.2:
// read TOML (preferred) or legacy JSON, merge a directory of files, resolve
// "include" directives, fail with typed errors on missing/malformed/
// structurally-invalid config.
//
// Grounded on the teacher's internal/config/config.go (LoadFromFile,
// createDefaultConfig, typed Config struct) for the overall "one Loader,
// typed accessors over a parsed document" shape; the wire format itself
// moves from the teacher's hand-rolled INI scanner to TOML via
// github.com/pelletier/go-toml/v2 per SPEC_FULL.md's domain-stack wiring.
package pyprconf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/Nomadcxx/pyprlandd/internal/pyprerrors"
)

// Document is the fully merged configuration tree: section name -> fields.
type Document struct {
	Sections map[string]map[string]any
}

// Section returns a section's raw field map, or an empty map if absent.
func (d *Document) Section(name string) map[string]any {
	if s, ok := d.Sections[name]; ok {
		return s
	}
	return map[string]any{}
}

// CanonicalPaths returns the search order used when no explicit path is
// given, per spec.md §6: preferred TOML, legacy TOML, legacy JSON.
func CanonicalPaths() []string {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		xdg = filepath.Join(home, ".config")
	}
	return []string{
		filepath.Join(xdg, "pypr", "config.toml"),
		filepath.Join(xdg, "hypr", "pyprland.toml"),
		filepath.Join(xdg, "hypr", "pyprland.json"),
	}
}

// Load resolves path per spec.md §4.2: a single file, a directory (merge
// all *.toml in sorted order), or "" to search CanonicalPaths. It then
// recursively resolves pyprland.include and validates root structure.
func Load(path string) (*Document, error) {
	var merged map[string]any
	var err error

	if path == "" {
		merged, err = loadFromCanonicalPaths()
	} else {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, pyprerrors.New(pyprerrors.KindConfigNotFound, statErr)
		}
		if info.IsDir() {
			merged, err = loadDir(path)
		} else {
			merged, err = loadFile(path)
		}
	}
	if err != nil {
		return nil, err
	}

	merged, err = resolveIncludes(merged, filepath.Dir(firstNonEmpty(path, ".")))
	if err != nil {
		return nil, err
	}

	if err := validateStructure(merged); err != nil {
		return nil, err
	}

	sections := make(map[string]map[string]any, len(merged))
	for k, v := range merged {
		if m, ok := v.(map[string]any); ok {
			sections[k] = m
		}
	}
	return &Document{Sections: sections}, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func loadFromCanonicalPaths() (map[string]any, error) {
	for _, p := range CanonicalPaths() {
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return nil, pyprerrors.New(pyprerrors.KindConfigNotFound,
		fmt.Errorf("no config file found in any of: %s", strings.Join(CanonicalPaths(), ", ")))
}

func loadDir(dir string) (map[string]any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pyprerrors.New(pyprerrors.KindConfigNotFound, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".toml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	merged := map[string]any{}
	for _, name := range names {
		part, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		merged = mergeInto(merged, part)
	}
	return merged, nil
}

func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pyprerrors.New(pyprerrors.KindConfigNotFound, err)
	}

	if strings.HasSuffix(path, ".json") {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, pyprerrors.New(pyprerrors.KindConfigParseError, err)
		}
		return m, nil
	}

	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, pyprerrors.New(pyprerrors.KindConfigParseError, err)
	}
	return m, nil
}

// resolveIncludes processes pyprland.include as a recursive list of
// additional files/directories, merging them into merged (spec.md §4.2).
func resolveIncludes(merged map[string]any, baseDir string) (map[string]any, error) {
	pyprland, _ := merged["pyprland"].(map[string]any)
	if pyprland == nil {
		return merged, nil
	}
	rawIncludes, ok := pyprland["include"]
	if !ok {
		return merged, nil
	}
	list, ok := rawIncludes.([]any)
	if !ok {
		return merged, pyprerrors.New(pyprerrors.KindConfigInvalid,
			fmt.Errorf("pyprland.include must be a list"))
	}

	for _, item := range list {
		rel, ok := item.(string)
		if !ok {
			continue
		}
		p := rel
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, rel)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, pyprerrors.New(pyprerrors.KindConfigNotFound, fmt.Errorf("include %q: %w", rel, err))
		}

		var part map[string]any
		if info.IsDir() {
			part, err = loadDir(p)
		} else {
			part, err = loadFile(p)
		}
		if err != nil {
			return nil, err
		}
		// Nested includes resolve relative to their own file's directory.
		nextBase := baseDir
		if !info.IsDir() {
			nextBase = filepath.Dir(p)
		} else {
			nextBase = p
		}
		part, err = resolveIncludes(part, nextBase)
		if err != nil {
			return nil, err
		}
		merged = mergeInto(merged, part)
	}
	return merged, nil
}

// mergeInto merges src into dst per spec.md §4.2's merge semantics:
// dictionaries merge recursively, lists concatenate, scalars in the later
// source replace earlier ones. A root-level "replace" key set to true on a
// section wholesale-replaces that section instead of merging it.
func mergeInto(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]any); ok {
			if replaceFlag, _ := srcMap["replace"].(bool); replaceFlag {
				cleaned := map[string]any{}
				for k, v := range srcMap {
					if k != "replace" {
						cleaned[k] = v
					}
				}
				dst[key] = cleaned
				continue
			}
			dstMap, _ := dst[key].(map[string]any)
			dst[key] = mergeInto(dstMap, srcMap)
			continue
		}
		if srcList, ok := srcVal.([]any); ok {
			if dstList, ok := dst[key].([]any); ok {
				dst[key] = append(append([]any{}, dstList...), srcList...)
				continue
			}
			dst[key] = srcList
			continue
		}
		dst[key] = srcVal
	}
	return dst
}

// validateStructure enforces spec.md §4.1's fatal startup conditions:
// missing [pyprland] section, missing plugins list.
func validateStructure(merged map[string]any) error {
	pyprland, ok := merged["pyprland"].(map[string]any)
	if !ok {
		return pyprerrors.New(pyprerrors.KindConfigInvalid,
			fmt.Errorf("config is missing required [pyprland] section"))
	}
	plugins, ok := pyprland["plugins"]
	if !ok {
		return pyprerrors.New(pyprerrors.KindConfigInvalid,
			fmt.Errorf("[pyprland] section is missing required \"plugins\" list"))
	}
	if _, ok := plugins.([]any); !ok {
		return pyprerrors.New(pyprerrors.KindConfigInvalid,
			fmt.Errorf("pyprland.plugins must be a list"))
	}
	return nil
}

// PluginNames returns the ordered list of plugin names from pyprland.plugins.
func (d *Document) PluginNames() []string {
	pyprland := d.Section("pyprland")
	raw, _ := pyprland["plugins"].([]any)
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names
}
