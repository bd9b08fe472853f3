package pyprconf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.toml", `
[pyprland]
plugins = ["magnify"]

[magnify]
factor = 2.5
`)
	doc, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	names := doc.PluginNames()
	if len(names) != 1 || names[0] != "magnify" {
		t.Errorf("PluginNames() = %v, want [magnify]", names)
	}
	if doc.Section("magnify")["factor"] != 2.5 {
		t.Errorf("magnify.factor = %v, want 2.5", doc.Section("magnify")["factor"])
	}
}

func TestLoadMissingPluginsIsFatal(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.toml", `
[pyprland]
`)
	_, err := Load(p)
	if err == nil {
		t.Fatal("Load() expected error for missing plugins list")
	}
}

func TestLoadMissingSectionIsFatal(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.toml", `
[magnify]
factor = 2.0
`)
	_, err := Load(p)
	if err == nil {
		t.Fatal("Load() expected error for missing [pyprland] section")
	}
}

func TestIncludeMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.toml", `
[wallpapers]
path = "/wallpapers"
`)
	p := writeFile(t, dir, "config.toml", `
[pyprland]
plugins = ["wallpapers"]
include = ["extra.toml"]
`)
	doc, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Section("wallpapers")["path"] != "/wallpapers" {
		t.Errorf("included section not merged: %+v", doc.Section("wallpapers"))
	}
}

func TestMergeIntoConcatenatesLists(t *testing.T) {
	dst := map[string]any{"a": []any{"x"}}
	src := map[string]any{"a": []any{"y"}}
	merged := mergeInto(dst, src)
	list := merged["a"].([]any)
	if len(list) != 2 || list[0] != "x" || list[1] != "y" {
		t.Errorf("mergeInto lists = %v, want [x y]", list)
	}
}

func TestMergeIntoScalarReplace(t *testing.T) {
	dst := map[string]any{"a": 1}
	src := map[string]any{"a": 2}
	merged := mergeInto(dst, src)
	if merged["a"] != 2 {
		t.Errorf("mergeInto scalar = %v, want 2", merged["a"])
	}
}

func TestLegacyJSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "pyprland.json", `{"pyprland": {"plugins": ["magnify"]}, "magnify": {"factor": 3}}`)
	doc, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.PluginNames()) != 1 {
		t.Errorf("PluginNames() = %v", doc.PluginNames())
	}
}
