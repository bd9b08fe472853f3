// Package commands builds the merged command registry of spec.md §3: every
// loaded plugin's static pluginhost.Command table, plus a small set of
// client-only descriptors, rendered as the "help" built-in's response body.
//
// Design Note §9 resolves the source tree's two overlapping registries
// (pyprland/command_registry.py and pyprland/commands/) in favor of one
// package with no parallel path — this is that one package (see
// DESIGN.md's Open Question resolutions).
package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
)

// Descriptor is one registry entry: a command name, its owning plugin, and
// the usage/description fields a docstring like
// "<a|b|c> [name] Short description\n\nDetail…" used to encode.
type Descriptor struct {
	Name        string
	Plugin      string
	RequiredArg string
	OptionalArg string
	Short       string
	Full        string
}

// Usage renders the "<required> [optional]" argument summary, empty if
// the command takes no arguments.
func (d Descriptor) Usage() string {
	var parts []string
	if d.RequiredArg != "" {
		parts = append(parts, fmt.Sprintf("<%s>", d.RequiredArg))
	}
	if d.OptionalArg != "" {
		parts = append(parts, fmt.Sprintf("[%s]", d.OptionalArg))
	}
	return strings.Join(parts, " ")
}

// clientOnly is the small set of descriptors spec.md §3 says are merged in
// without a backing plugin — handled entirely by cmd/pyprctl, never sent
// over the control socket.
var clientOnly = []Descriptor{
	{Name: "edit", Short: "Edit the configuration file."},
	{Name: "menu", Short: "Browse and run commands interactively."},
}

// Registry is the merged, name-indexed set of every known command.
type Registry struct {
	byName map[string]Descriptor
}

// Build constructs a Registry from every loaded plugin's Commands() table
// (spec.md §4.6 loads plugins before this is called) plus clientOnly.
func Build(loaded map[string]pluginhost.Plugin) *Registry {
	r := &Registry{byName: map[string]Descriptor{}}
	for pluginName, p := range loaded {
		for cmdName, cmd := range p.Commands() {
			r.byName[cmdName] = Descriptor{
				Name:        cmdName,
				Plugin:      pluginName,
				RequiredArg: cmd.RequiredArg,
				OptionalArg: cmd.OptionalArg,
				Short:       cmd.Short,
				Full:        cmd.Full,
			}
		}
	}
	for _, d := range clientOnly {
		if _, exists := r.byName[d.Name]; !exists {
			r.byName[d.Name] = d
		}
	}
	return r
}

// Lookup returns the descriptor for a command name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns every descriptor sorted by name.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Help renders the "help" built-in's response body (spec.md §8 Scenario 5):
// one line per command, "<name>  <short> [<plugin>]", core commands
// (Plugin == "" or "pyprland") omitting the trailing bracket.
func (r *Registry) Help() string {
	var b strings.Builder
	for _, d := range r.All() {
		b.WriteString(d.Name)
		if d.Short != "" {
			b.WriteString("  ")
			b.WriteString(d.Short)
		}
		if d.Plugin != "" && d.Plugin != pluginhost.CorePluginName {
			fmt.Fprintf(&b, " [%s]", d.Plugin)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Doc renders the "doc" built-in's full per-command text for one command,
// falling back to Short if Full is unset.
func (r *Registry) Doc(name string) (string, bool) {
	d, ok := r.byName[name]
	if !ok {
		return "", false
	}
	if d.Full != "" {
		return d.Full, true
	}
	return d.Short, true
}

// Compgen lists command names with the given prefix, sorted, for shell
// completion (the "compgen" built-in).
func (r *Registry) Compgen(prefix string) []string {
	var out []string
	for name := range r.byName {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
