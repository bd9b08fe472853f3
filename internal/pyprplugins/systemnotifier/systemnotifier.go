// Package systemnotifier implements the "system_notifier" glue plugin
// (SPEC_FULL.md §4): tails one or more long-running commands (typically
// journalctl) and turns matching lines into compositor notifications.
package systemnotifier

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

const PluginName = "system_notifier"

// Rule is one parser rule: a regex that must match a source line, an
// optional sed-style replacement to derive the notification text, and the
// color/duration to notify with.
type Rule struct {
	Pattern     *regexp.Regexp
	HasFilter   bool
	Replacement string // Go regexp replacement template, only valid if HasFilter
	Color       backend.Color
	Duration    time.Duration
}

// source is one configured long-running command and the parsers that
// should see its output.
type source struct {
	Command string
	Parsers []string
}

// builtinRules mirrors the teacher's bundled "journal" parser: link
// up/down, core dumps, and USB hotplug lines out of `journalctl`.
var builtinRuleSpecs = []struct {
	pattern string
	filter  string
	color   string
}{
	{pattern: `([a-z0-9]+): Link UP$`, filter: `s/.*\[\d+\]: ([a-z0-9]+): Link.*/\1 is active/`, color: "#00aa00"},
	{pattern: `([a-z0-9]+): Link DOWN$`, filter: `s/.*\[\d+\]: ([a-z0-9]+): Link.*/\1 is inactive/`, color: "#ff8800"},
	{pattern: `Process \d+ \(.*\) of .* dumped core\.$`, filter: `s/.*Process \d+ \((.*)\) of .* dumped core\./\1 dumped core/`, color: "#aa0000"},
	{pattern: `usb \d+-[0-9.]+: Product: `, filter: `s/.*usb \d+-[0-9.]+: Product: (.*)/USB plugged: \1/`, color: ""},
}

type Plugin struct {
	pluginhost.Base

	log zerolog.Logger

	mu            sync.Mutex
	rules         map[string][]Rule // parser name -> rules
	sources       []source
	useNotifySend bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Init(ctx context.Context) error {
	p.log = zerolog.Nop()
	if l, ok := p.Base.Backend.(interface{ Logger() zerolog.Logger }); ok {
		p.log = l.Logger()
	}
	return nil
}

// LoadConfig parses "default_color", "use_notify_send", "parsers" (custom
// rule sets merged over the builtin "journal" one) and "sources" (commands
// paired with the parser(s) that consume their output).
func (p *Plugin) LoadConfig(v *schema.View) error {
	defaultColor, ok := parseHexColor(v.GetString("default_color", "#5555AA"))
	if !ok {
		defaultColor = backend.Color{R: 0x55, G: 0x55, B: 0xaa, A: 0xff}
	}

	rules := map[string][]Rule{"journal": builtinRules(defaultColor)}
	parsersView := v.Sub("parsers")
	for _, name := range parsersView.Keys() {
		var parsed []Rule
		for _, raw := range parsersView.GetList(name) {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if r, ok := parseRule(item, defaultColor); ok {
				parsed = append(parsed, r)
			}
		}
		if len(parsed) > 0 {
			rules[name] = parsed
		}
	}

	var sources []source
	for _, raw := range v.GetList("sources") {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := item["command"].(string)
		if cmd == "" {
			continue
		}
		sources = append(sources, source{Command: cmd, Parsers: parserNames(item["parser"])})
	}

	p.mu.Lock()
	p.rules = rules
	p.sources = sources
	p.useNotifySend = v.GetBool("use_notify_send", false)
	p.mu.Unlock()
	return nil
}

func parserNames(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func builtinRules(defaultColor backend.Color) []Rule {
	out := make([]Rule, 0, len(builtinRuleSpecs))
	for _, spec := range builtinRuleSpecs {
		re, err := regexp.Compile(spec.pattern)
		if err != nil {
			continue
		}
		color := defaultColor
		if spec.color != "" {
			if c, ok := parseHexColor(spec.color); ok {
				color = c
			}
		}
		_, replacement, hasFilter := parseSedFilter(spec.filter)
		out = append(out, Rule{Pattern: re, HasFilter: hasFilter, Replacement: replacement, Color: color, Duration: 3 * time.Second})
	}
	return out
}

func parseRule(item map[string]any, defaultColor backend.Color) (Rule, bool) {
	patternStr, _ := item["pattern"].(string)
	if patternStr == "" {
		return Rule{}, false
	}
	re, err := regexp.Compile(patternStr)
	if err != nil {
		return Rule{}, false
	}
	color := defaultColor
	if s, ok := item["color"].(string); ok && s != "" {
		if c, ok := parseHexColor(s); ok {
			color = c
		}
	}
	duration := 3 * time.Second
	switch d := item["duration"].(type) {
	case float64:
		duration = time.Duration(d * float64(time.Second))
	case int:
		duration = time.Duration(d) * time.Second
	}
	var replacement string
	var hasFilter bool
	if f, ok := item["filter"].(string); ok && f != "" {
		_, replacement, hasFilter = parseSedFilter(f)
	}
	return Rule{Pattern: re, HasFilter: hasFilter, Replacement: replacement, Color: color, Duration: duration}, true
}

// parseSedFilter splits a "s/pattern/replacement/" filter string, converting
// \N backreferences in the replacement to Go's $N template form.
func parseSedFilter(filter string) (pattern, replacement string, ok bool) {
	if !strings.HasPrefix(filter, "s/") {
		return "", "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(filter, "s/"), "/")
	idx := strings.Index(body, "/")
	if idx < 0 {
		return "", "", false
	}
	return body[:idx], toGoReplacement(body[idx+1:]), true
}

var backrefPattern = regexp.MustCompile(`\\(\d)`)

func toGoReplacement(s string) string {
	return backrefPattern.ReplaceAllString(s, "$$$1")
}

// parseHexColor parses "#rrggbb" or "#rrggbbaa" into a backend.Color.
func parseHexColor(s string) (backend.Color, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return backend.Color{}, false
	}
	r, err1 := strconv.ParseUint(s[0:2], 16, 8)
	g, err2 := strconv.ParseUint(s[2:4], 16, 8)
	b, err3 := strconv.ParseUint(s[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return backend.Color{}, false
	}
	a := uint64(0xff)
	if len(s) == 8 {
		var err4 error
		a, err4 = strconv.ParseUint(s[6:8], 16, 8)
		if err4 != nil {
			return backend.Color{}, false
		}
	}
	return backend.Color{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, true
}

// OnReload (re)starts every configured source, matching the teacher's
// on_reload, which always stops and restarts its tasks rather than only
// wiring up once.
func (p *Plugin) OnReload(ctx context.Context, reason pluginhost.ReloadReason) error {
	p.stop()

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.mu.Lock()
	sources := append([]source(nil), p.sources...)
	p.mu.Unlock()

	for _, src := range sources {
		p.wg.Add(1)
		go p.runSource(runCtx, src)
	}
	return nil
}

func (p *Plugin) Exit(ctx context.Context) error {
	p.stop()
	return nil
}

func (p *Plugin) stop() {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
		p.cancel = nil
	}
}

func (p *Plugin) Commands() map[string]pluginhost.Command { return nil }
func (p *Plugin) Events() map[string]pluginhost.EventFunc  { return nil }

// runSource runs one configured command under a shell and feeds each
// stdout line to every parser it names, grounded on pkg/idle's
// readCommandOutput/hypridle subprocess-monitor pattern.
func (p *Plugin) runSource(ctx context.Context, src source) {
	defer p.wg.Done()

	cmd := exec.CommandContext(ctx, "sh", "-c", src.Command)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.log.Warn().Err(err).Str("command", src.Command).Msg("system_notifier: stdout pipe failed")
		return
	}
	if err := cmd.Start(); err != nil {
		p.log.Warn().Err(err).Str("command", src.Command).Msg("system_notifier: failed to start source")
		return
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		p.handleLine(ctx, scanner.Text(), src.Parsers)
	}
	_ = cmd.Wait()
}

func (p *Plugin) handleLine(ctx context.Context, line string, parserNames []string) {
	p.mu.Lock()
	rules := p.rules
	useNotifySend := p.useNotifySend
	p.mu.Unlock()

	for _, name := range parserNames {
		for _, rule := range rules[name] {
			if !rule.Pattern.MatchString(line) {
				continue
			}
			text := line
			if rule.HasFilter {
				text = rule.Pattern.ReplaceAllString(line, rule.Replacement)
			}
			p.notify(ctx, text, rule.Color, rule.Duration, useNotifySend)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (p *Plugin) notify(ctx context.Context, text string, color backend.Color, duration time.Duration, useNotifySend bool) {
	if useNotifySend {
		ms := strconv.Itoa(int(duration / time.Millisecond))
		if err := exec.CommandContext(ctx, "notify-send", "-t", ms, text).Run(); err != nil {
			p.log.Warn().Err(err).Msg("system_notifier: notify-send failed")
		}
		return
	}
	if err := p.Backend.Notify(ctx, text, int(duration/time.Millisecond), color); err != nil {
		p.log.Warn().Err(err).Msg("system_notifier: notify failed")
	}
}
