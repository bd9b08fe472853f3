package backend

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

// WaylandFallback and X11Fallback implement only GetMonitors by parsing
// wlr-randr/xrandr text output (spec.md §4.4). Notify shells out to
// notify-send; every other call is a no-op that returns a zero value and a
// nil error without logging anything. Grounded on the teacher's
// pkg/multi_display/multi_display.go parseWlrRandrOutput/parseXrandrOutput,
// rewritten against stdlib regexp/strings.Fields instead of the teacher's
// hand-rolled splitBy (a from-scratch parser not worth keeping verbatim —
// see DESIGN.md).

var wlrModeLine = regexp.MustCompile(`^\s+(\d+)x(\d+)@([\d.]+)Hz(?:\s+\(([^)]*)\))?\s*$`)
var wlrPositionLine = regexp.MustCompile(`^\s+Position:\s+([\-\d]+),([\-\d]+)\s*$`)
var wlrScaleLine = regexp.MustCompile(`^\s+Scale:\s+([\d.]+)\s*$`)
var wlrHeaderLine = regexp.MustCompile(`^(\S+)\s+"([^"]*)"\s*$`)

// WaylandFallback shells out to wlr-randr --query.
type WaylandFallback struct{}

func NewWaylandFallback() *WaylandFallback { return &WaylandFallback{} }

func (w *WaylandFallback) Name() string            { return "wayland" }
func (w *WaylandFallback) EventSocketPath() string { return "" }

func (w *WaylandFallback) GetMonitors(ctx context.Context, includeDisabled bool) ([]MonitorInfo, error) {
	out, err := exec.CommandContext(ctx, "wlr-randr", "--query").Output()
	if err != nil {
		return nil, fmt.Errorf("wlr-randr: %w", err)
	}
	return parseWlrRandr(string(out)), nil
}

func parseWlrRandr(text string) []MonitorInfo {
	var monitors []MonitorInfo
	var current *MonitorInfo
	inCurrentMode := false

	for _, line := range splitLinesKeepEmpty(text) {
		if m := wlrHeaderLine.FindStringSubmatch(line); m != nil && len(line) > 0 && line[0] != ' ' {
			if current != nil {
				monitors = append(monitors, *current)
			}
			current = &MonitorInfo{Name: m[1], Description: m[2], Scale: 1}
			inCurrentMode = false
			continue
		}
		if current == nil {
			continue
		}
		if m := wlrModeLine.FindStringSubmatch(line); m != nil {
			isCurrent := m[4] != "" && containsWord(m[4], "current")
			if isCurrent || !inCurrentMode {
				w, _ := strconv.Atoi(m[1])
				h, _ := strconv.Atoi(m[2])
				rate, _ := strconv.ParseFloat(m[3], 64)
				current.Width, current.Height, current.RefreshRate = w, h, rate
				if isCurrent {
					inCurrentMode = true
				}
			}
			continue
		}
		if m := wlrPositionLine.FindStringSubmatch(line); m != nil {
			x, _ := strconv.Atoi(m[1])
			y, _ := strconv.Atoi(m[2])
			current.X, current.Y = x, y
			continue
		}
		if m := wlrScaleLine.FindStringSubmatch(line); m != nil {
			if s, err := strconv.ParseFloat(m[1], 64); err == nil {
				current.Scale = s
			}
			continue
		}
	}
	if current != nil {
		monitors = append(monitors, *current)
	}
	return monitors
}

func containsWord(haystack, word string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`).MatchString(haystack)
}

func splitLinesKeepEmpty(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func (w *WaylandFallback) GetClients(ctx context.Context, filter ClientFilter) ([]ClientInfo, error) {
	return nil, nil
}
func (w *WaylandFallback) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (w *WaylandFallback) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	return nil, nil
}
func (w *WaylandFallback) ExecuteBatch(ctx context.Context, commands []string) error { return nil }
func (w *WaylandFallback) Notify(ctx context.Context, message string, durationMS int, color Color) error {
	return notifySend(ctx, message, durationMS)
}
func (w *WaylandFallback) ParseEvent(raw string) (string, string, bool) { return "", "", false }

// X11Fallback shells out to xrandr --query.
type X11Fallback struct{}

func NewX11Fallback() *X11Fallback { return &X11Fallback{} }

func (x *X11Fallback) Name() string            { return "xorg" }
func (x *X11Fallback) EventSocketPath() string { return "" }

var xrandrConnected = regexp.MustCompile(`^(\S+)\s+connected\s+(primary\s+)?(\d+)x(\d+)\+(\-?\d+)\+(\-?\d+)`)

func (x *X11Fallback) GetMonitors(ctx context.Context, includeDisabled bool) ([]MonitorInfo, error) {
	out, err := exec.CommandContext(ctx, "xrandr", "--query").Output()
	if err != nil {
		return nil, fmt.Errorf("xrandr: %w", err)
	}
	var monitors []MonitorInfo
	for _, line := range splitLinesKeepEmpty(string(out)) {
		m := xrandrConnected.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		width, _ := strconv.Atoi(m[3])
		height, _ := strconv.Atoi(m[4])
		xPos, _ := strconv.Atoi(m[5])
		yPos, _ := strconv.Atoi(m[6])
		monitors = append(monitors, MonitorInfo{
			Name: m[1], Width: width, Height: height, X: xPos, Y: yPos,
			Scale: 1, Focused: m[2] != "",
		})
	}
	return monitors, nil
}

func (x *X11Fallback) GetClients(ctx context.Context, filter ClientFilter) ([]ClientInfo, error) {
	return nil, nil
}
func (x *X11Fallback) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (x *X11Fallback) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	return nil, nil
}
func (x *X11Fallback) ExecuteBatch(ctx context.Context, commands []string) error { return nil }
func (x *X11Fallback) Notify(ctx context.Context, message string, durationMS int, color Color) error {
	return notifySend(ctx, message, durationMS)
}
func (x *X11Fallback) ParseEvent(raw string) (string, string, bool) { return "", "", false }
