// Package layout implements the monitor layout resolver (spec.md §4.8):
// pattern→monitor resolution, a placement dependency graph, Kahn's-
// algorithm topological coordinate propagation, cycle detection, and
// normalization, applied to the backend with bounded concurrency.
//
// Grounded on pkg/multi_display/multi_display.go's Display/detect model
// (a struct-per-output, pattern-matched against real outputs), generalized
// from "read-only output enumeration" into a full placement solver.
package layout

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

// Direction is a placement rule's reference direction.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirTop
	DirBottom
)

// Alignment is a placement rule's perpendicular-axis alignment.
type Alignment int

const (
	AlignNear Alignment = iota // default: align to reference's near edge
	AlignCenter
	AlignFar // aligns to reference's far edge
)

// Rule is one parsed placement entry for a subject monitor.
type Rule struct {
	Direction Direction
	Alignment Alignment
	Targets   []string // pattern(s); first is the reference, rest produce a warning
}

// ParseRuleKey parses a case-insensitive rule key like "leftOf", "right",
// "topCenter", "bottomEnd" into a Direction+Alignment (spec.md §4.8).
func ParseRuleKey(key string) (Rule, bool) {
	lower := strings.ToLower(key)
	var dir Direction
	var rest string
	switch {
	case strings.HasPrefix(lower, "left"):
		dir, rest = DirLeft, strings.TrimPrefix(lower, "left")
	case strings.HasPrefix(lower, "right"):
		dir, rest = DirRight, strings.TrimPrefix(lower, "right")
	case strings.HasPrefix(lower, "top"):
		dir, rest = DirTop, strings.TrimPrefix(lower, "top")
	case strings.HasPrefix(lower, "bottom"):
		dir, rest = DirBottom, strings.TrimPrefix(lower, "bottom")
	default:
		return Rule{}, false
	}
	align := AlignNear
	switch {
	case strings.Contains(rest, "center"), strings.Contains(rest, "middle"):
		align = AlignCenter
	case strings.Contains(rest, "end"), strings.Contains(rest, "bottom"), strings.Contains(rest, "right"):
		align = AlignFar
	}
	return Rule{Direction: dir, Alignment: align}, true
}

// Entry is one user-configured layout entry: a subject pattern plus its
// placement rule and output properties.
type Entry struct {
	Pattern    string
	Rule       Rule
	HasRule    bool
	Resolution string // "WxH" or "" if unset
	Rate       float64
	Scale      float64
	Transform  int
	Disables   []string // patterns to power off when this entry's monitor is present
}

// Resolved binds an Entry to the monitor name its pattern matched.
type Resolved struct {
	Entry   Entry
	Monitor string
}

// resolvePattern matches a pattern against exactly one monitor's name, or
// substring of its description, per spec.md §4.8.
func resolvePattern(pattern string, monitors []backend.MonitorInfo) (string, bool) {
	for _, m := range monitors {
		if m.Name == pattern {
			return m.Name, true
		}
	}
	for _, m := range monitors {
		if strings.Contains(m.Description, pattern) {
			return m.Name, true
		}
	}
	return "", false
}

// Resolver runs the layout algorithm and applies it to a backend.
type Resolver struct {
	log  zerolog.Logger
	back backend.Backend

	cache map[string]string // pattern -> monitor name, per spec.md §4.8 step 1
}

func NewResolver(log zerolog.Logger, back backend.Backend) *Resolver {
	return &Resolver{log: log, back: back, cache: map[string]string{}}
}

// Plan is the layout resolver's output before Apply: final coordinates,
// the to-disable set, and any user-visible warnings (cycles, multi-target
// rules).
type Plan struct {
	Placements map[string]backend.Geometry // monitor -> final (x, y, w, h)
	ToDisable  []string
	Warnings   []string
	Matched    bool // true if at least one configured pattern resolved to a present monitor
}

// Resolve runs spec.md §4.8's algorithm steps 1-6 against the current
// monitor list.
func (r *Resolver) Resolve(ctx context.Context, entries []Entry) (Plan, error) {
	monitors, err := r.back.GetMonitors(ctx, true)
	if err != nil {
		return Plan{}, fmt.Errorf("layout: get_monitors: %w", err)
	}
	byName := make(map[string]backend.MonitorInfo, len(monitors))
	for _, m := range monitors {
		byName[m.Name] = m
	}

	plan := Plan{Placements: map[string]backend.Geometry{}}

	// Step 1: resolve patterns, dropping unresolved ones silently.
	var resolved []Resolved
	for _, e := range entries {
		name, ok := r.cache[e.Pattern]
		if !ok {
			name, ok = resolvePattern(e.Pattern, monitors)
			if ok {
				r.cache[e.Pattern] = name
			}
		}
		if !ok {
			continue
		}
		resolved = append(resolved, Resolved{Entry: e, Monitor: name})
	}
	plan.Matched = len(resolved) > 0

	// Step 2: union of disables.
	disableSet := map[string]bool{}
	for _, res := range resolved {
		for _, pattern := range res.Entry.Disables {
			if name, ok := resolvePattern(pattern, monitors); ok {
				disableSet[name] = true
			}
		}
	}
	for name := range disableSet {
		plan.ToDisable = append(plan.ToDisable, name)
	}
	sort.Strings(plan.ToDisable)

	active := make(map[string]Resolved)
	for _, res := range resolved {
		if !disableSet[res.Monitor] {
			active[res.Monitor] = res
		}
	}

	// Step 3: build the placement graph (edges: reference -> subject).
	type edge struct{ from, to string }
	edges := map[string][]edge{} // from -> []edge
	indegree := map[string]int{}
	for name := range byName {
		if disableSet[name] {
			continue
		}
		indegree[name] = 0
	}
	for name, res := range active {
		if !res.Entry.HasRule || len(res.Entry.Rule.Targets) == 0 {
			continue
		}
		if len(res.Entry.Rule.Targets) > 1 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf(
				"layout: %q has multiple placement targets %v, using the first", name, res.Entry.Rule.Targets))
		}
		refPattern := res.Entry.Rule.Targets[0]
		refName, ok := resolvePattern(refPattern, monitors)
		if !ok || disableSet[refName] {
			continue
		}
		edges[refName] = append(edges[refName], edge{from: refName, to: name})
		indegree[name]++
	}

	// Step 4: Kahn's algorithm. Seed with monitors that have no incoming
	// edge (anchors at their current coordinates).
	var queue []string
	for name := range indegree {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	processed := map[string]bool{}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if processed[name] {
			continue
		}
		processed[name] = true

		if _, already := plan.Placements[name]; !already {
			// An anchor: no rule placed it (zero indegree), so it keeps
			// its current backend-reported coordinates.
			mon := byName[name]
			w, h := mon.EffectiveSize()
			plan.Placements[name] = backend.Geometry{X: mon.X, Y: mon.Y, Width: int(w), Height: int(h)}
		}

		for _, e := range edges[name] {
			propagate(plan, byName, e.from, e.to, active[e.to].Entry.Rule)
			indegree[e.to]--
			if indegree[e.to] == 0 {
				queue = append(queue, e.to)
			}
		}
	}

	// Step 5: unprocessed monitors indicate a cycle.
	for name := range indegree {
		if !processed[name] {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("layout: cycle detected involving %q; at least one monitor must be an anchor", name))
			mon := byName[name]
			w, h := mon.EffectiveSize()
			plan.Placements[name] = backend.Geometry{X: mon.X, Y: mon.Y, Width: int(w), Height: int(h)}
		}
	}

	// Step 6: normalize so all coordinates are non-negative.
	normalize(plan.Placements)

	return plan, nil
}

// propagate computes a dependent's (x, y) from its reference's rectangle
// and the rule's direction/alignment (spec.md §4.8 step 4).
func propagate(plan Plan, byName map[string]backend.MonitorInfo, refName, subjectName string, rule Rule) {
	refGeo, ok := plan.Placements[refName]
	if !ok {
		return
	}
	subjectMon := byName[subjectName]
	sw, sh := subjectMon.EffectiveSize()
	subjectW, subjectH := int(sw), int(sh)

	var x, y int
	switch rule.Direction {
	case DirLeft:
		x = refGeo.X - subjectW
		y = alignPerp(rule.Alignment, refGeo.Y, refGeo.Height, subjectH)
	case DirRight:
		x = refGeo.X + refGeo.Width
		y = alignPerp(rule.Alignment, refGeo.Y, refGeo.Height, subjectH)
	case DirTop:
		y = refGeo.Y - subjectH
		x = alignPerp(rule.Alignment, refGeo.X, refGeo.Width, subjectW)
	case DirBottom:
		y = refGeo.Y + refGeo.Height
		x = alignPerp(rule.Alignment, refGeo.X, refGeo.Width, subjectW)
	}
	plan.Placements[subjectName] = backend.Geometry{X: x, Y: y, Width: subjectW, Height: subjectH}
}

// alignPerp computes the perpendicular-axis coordinate for center/far/near
// alignment relative to a reference span.
func alignPerp(align Alignment, refStart, refSpan, subjectSpan int) int {
	switch align {
	case AlignCenter:
		return refStart + (refSpan-subjectSpan)/2
	case AlignFar:
		return refStart + refSpan - subjectSpan
	default:
		return refStart
	}
}

// normalize translates every placement by (-min_x, -min_y) so all
// coordinates are non-negative (spec.md §4.8 step 6).
func normalize(placements map[string]backend.Geometry) {
	if len(placements) == 0 {
		return
	}
	minX, minY := 0, 0
	first := true
	for _, g := range placements {
		if first || g.X < minX {
			minX = g.X
		}
		if first || g.Y < minY {
			minY = g.Y
		}
		first = false
	}
	if minX == 0 && minY == 0 {
		return
	}
	for name, g := range placements {
		g.X -= minX
		g.Y -= minY
		placements[name] = g
	}
}

// Apply issues one backend command per active monitor (Hyprland's "keyword
// monitor ..." shape; Niri backends would translate the same Plan into
// structured actions through the same Backend.Execute surface) plus one
// disable per ToDisable monitor, bounded by errgroup per spec.md §4.8.
func (r *Resolver) Apply(ctx context.Context, entries []Entry, plan Plan) error {
	byPattern := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byPattern[e.Pattern] = e
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, geo := range plan.Placements {
		name, geo := name, geo
		g.Go(func() error {
			props := propsFor(name, entries, r.cache)
			cmd := fmt.Sprintf("monitor %s,%s,%dx%d,%s",
				name, resolutionOrAuto(props), geo.X, geo.Y, scaleOrAuto(props))
			return r.back.Execute(gctx, cmd, "keyword", false)
		})
	}
	for _, name := range plan.ToDisable {
		name := name
		g.Go(func() error {
			return r.back.Execute(gctx, fmt.Sprintf("monitor %s,disable", name), "keyword", false)
		})
	}
	return g.Wait()
}

func propsFor(monitorName string, entries []Entry, cache map[string]string) Entry {
	for _, e := range entries {
		if cache[e.Pattern] == monitorName {
			return e
		}
	}
	return Entry{}
}

func resolutionOrAuto(e Entry) string {
	if e.Resolution == "" {
		return "preferred"
	}
	return e.Resolution
}

func scaleOrAuto(e Entry) string {
	if e.Scale <= 0 {
		return "1"
	}
	return strconv.FormatFloat(e.Scale, 'f', -1, 64)
}

var resolutionPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ParseResolution accepts "WxH" or "[W,H]" per spec.md §4.8's prop_keys.
func ParseResolution(s string) (w, h int, ok bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		parts := strings.Split(strings.Trim(s, "[]"), ",")
		if len(parts) != 2 {
			return 0, 0, false
		}
		w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errW != nil || errH != nil {
			return 0, 0, false
		}
		return w, h, true
	}
	m := resolutionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	w, _ = strconv.Atoi(m[1])
	h, _ = strconv.Atoi(m[2])
	return w, h, true
}
