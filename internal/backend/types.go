// Package backend implements the compositor-abstraction layer (spec.md
// §4.4): a uniform API over Hyprland, Niri, and the degraded wlr-randr/xrandr
// fallbacks, grounded on the teacher's internal/compositor/*.go files (one
// struct per compositor, JSON decode for Hyprland/Sway-shaped output, regex
// parse for text-based tools).
package backend

import "context"

// WorkspaceRef identifies a workspace by id and name.
type WorkspaceRef struct {
	ID   int
	Name string
}

// Geometry is a window or monitor's position/size.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// ClientInfo is a compositor window record (spec.md §3).
type ClientInfo struct {
	Address   string
	Class     string
	Title     string
	Workspace WorkspaceRef
	PID       int
	Mapped    bool
	Floating  bool
	Pinned    bool
	At        [2]int
	Size      [2]int

	// Optional fields, absent on non-Hyprland backends.
	Fullscreen   bool
	Hidden       bool
	XWayland     bool
	InitialClass string
	InitialTitle string
	Grouped      []string
}

// MonitorInfo is a compositor monitor record (spec.md §3).
type MonitorInfo struct {
	Name            string
	Description     string
	Width           int
	Height          int
	X               int
	Y               int
	Scale           float64
	Transform       int // 0-7; odd values rotate 90/270 and swap W/H for layout
	RefreshRate     float64
	ActiveWorkspace WorkspaceRef
	Focused         bool
	Disabled        bool

	// ToDisable is mutated by the layout resolver (spec.md §3) to mark a
	// monitor for the "disables" pass before backend.Execute is called.
	ToDisable bool
}

// EffectiveSize returns the layout-significant width/height: scaled, and
// swapped when Transform is odd (90/270 rotation), per spec.md §3/§4.8.
func (m MonitorInfo) EffectiveSize() (w, h float64) {
	w = float64(m.Width) / scaleOrOne(m.Scale)
	h = float64(m.Height) / scaleOrOne(m.Scale)
	if m.Transform%2 == 1 {
		w, h = h, w
	}
	return w, h
}

func scaleOrOne(s float64) float64 {
	if s <= 0 {
		return 1
	}
	return s
}

// ClientFilter narrows get_clients results (spec.md §4.4).
type ClientFilter struct {
	MappedOnly       bool
	Workspace        string // include only this workspace name, if set
	WorkspaceExclude []string
}

// Color is an RGBA notification color.
type Color struct {
	R, G, B, A uint8
}

// Backend is the uniform compositor API (spec.md §4.4).
type Backend interface {
	// Name identifies the backend for logging ("hyprland", "niri", "wayland", "xorg").
	Name() string

	GetClients(ctx context.Context, filter ClientFilter) ([]ClientInfo, error)
	GetMonitors(ctx context.Context, includeDisabled bool) ([]MonitorInfo, error)

	// Execute dispatches a command (or a batch, joined by ';') using
	// baseCommand ("dispatch" or "keyword"); weak downgrades failure logs.
	Execute(ctx context.Context, command string, baseCommand string, weak bool) error
	// ExecuteJSON issues a read-only structured query.
	ExecuteJSON(ctx context.Context, command string) ([]byte, error)
	// ExecuteBatch fires a set of commands without waiting on individual results.
	ExecuteBatch(ctx context.Context, commands []string) error

	Notify(ctx context.Context, message string, durationMS int, color Color) error

	// ParseEvent turns one raw event-stream line into (handlerName, payload).
	// Returns ok=false if the line doesn't map to a known event.
	ParseEvent(raw string) (handlerName string, payload string, ok bool)

	// EventSocketPath (or empty, if this backend has no event stream —
	// the wlr-randr/xrandr fallbacks never emit events).
	EventSocketPath() string
}

// NotifyInfo and NotifyError are convenience wrappers used by plugins, kept
// as free functions (not interface methods) since they're pure sugar over
// Notify, the way the teacher keeps small free helper functions
// (pkg/multi_display's splitBy helpers) instead of bloating the interface.
func NotifyInfo(ctx context.Context, b Backend, message string) error {
	return b.Notify(ctx, message, 5000, Color{R: 0x6f, G: 0xb4, B: 0xe8, A: 0xff})
}

func NotifyError(ctx context.Context, b Backend, message string) error {
	return b.Notify(ctx, message, 8000, Color{R: 0xe8, G: 0x6f, B: 0x6f, A: 0xff})
}
