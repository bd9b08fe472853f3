package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Hyprland talks to the two Unix sockets Hyprland exposes per instance
// (.socket.sock for commands, .socket2.sock for events), grounded on the
// teacher's internal/compositor/hyprland.go JSON-decode shape
// (hyprlandMonitor) but against the real hyprctl wire protocol instead of
// shelling out to the hyprctl binary.
type Hyprland struct {
	cmdSocketPath   string
	eventSocketPath string
	dialTimeout     time.Duration
}

type hyprMonitor struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	X             int     `json:"x"`
	Y             int     `json:"y"`
	Scale         float64 `json:"scale"`
	Transform     int     `json:"transform"`
	RefreshRate   float64 `json:"refreshRate"`
	Focused       bool    `json:"focused"`
	Disabled      bool    `json:"disabled"`
	ActiveWorkspace struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"activeWorkspace"`
}

type hyprClient struct {
	Address   string `json:"address"`
	Class     string `json:"class"`
	Title     string `json:"title"`
	Workspace struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"workspace"`
	PID          int    `json:"pid"`
	Mapped       bool   `json:"mapped"`
	Floating     bool   `json:"floating"`
	Pinned       bool   `json:"pinned"`
	Fullscreen   bool   `json:"fullscreen"`
	Hidden       bool   `json:"hidden"`
	XWayland     bool   `json:"xwayland"`
	InitialClass string `json:"initialClass"`
	InitialTitle string `json:"initialTitle"`
	Grouped      []string `json:"grouped"`
	At           [2]int   `json:"at"`
	Size         [2]int   `json:"size"`
}

// NewHyprland builds a Hyprland backend from the instance signature's IPC dir.
func NewHyprland(ipcDir string) *Hyprland {
	return &Hyprland{
		cmdSocketPath:   ipcDir + "/.socket.sock",
		eventSocketPath: ipcDir + "/.socket2.sock",
		dialTimeout:     2 * time.Second,
	}
}

func (h *Hyprland) Name() string            { return "hyprland" }
func (h *Hyprland) EventSocketPath() string { return h.eventSocketPath }

// OpenEventStream dials the long-lived event socket and scans it line by
// line, one NAME>>PAYLOAD event per line (spec.md §4.4).
func (h *Hyprland) OpenEventStream(ctx context.Context) (*bufio.Scanner, func() error, error) {
	d := net.Dialer{Timeout: h.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", h.eventSocketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("hyprland: dial event socket: %w", err)
	}
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc, conn.Close, nil
}

// sendCommand writes raw bytes to the command socket and reads the full
// response. Retries once on a reset connection (spec.md §4.4's
// "decorator retries on ConnectionResetError once").
func (h *Hyprland) sendCommand(ctx context.Context, raw []byte) ([]byte, error) {
	resp, err := h.sendCommandOnce(ctx, raw)
	if err != nil && isConnReset(err) {
		resp, err = h.sendCommandOnce(ctx, raw)
	}
	return resp, err
}

func (h *Hyprland) sendCommandOnce(ctx context.Context, raw []byte) ([]byte, error) {
	d := net.Dialer{Timeout: h.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", h.cmdSocketPath)
	if err != nil {
		return nil, fmt.Errorf("hyprland: dial command socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(raw); err != nil {
		return nil, fmt.Errorf("hyprland: write command: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(conn); err != nil {
		return nil, fmt.Errorf("hyprland: read response: %w", err)
	}
	return buf.Bytes(), nil
}

func isConnReset(err error) bool {
	return strings.Contains(err.Error(), "connection reset")
}

func (h *Hyprland) GetMonitors(ctx context.Context, includeDisabled bool) ([]MonitorInfo, error) {
	raw, err := h.sendCommand(ctx, []byte("-j/monitors"+allSuffix(includeDisabled)))
	if err != nil {
		return nil, err
	}
	var mons []hyprMonitor
	if err := json.Unmarshal(raw, &mons); err != nil {
		return nil, fmt.Errorf("hyprland: parse monitors json: %w", err)
	}
	out := make([]MonitorInfo, 0, len(mons))
	for _, m := range mons {
		if m.Disabled && !includeDisabled {
			continue
		}
		out = append(out, MonitorInfo{
			Name: m.Name, Description: m.Description,
			Width: m.Width, Height: m.Height, X: m.X, Y: m.Y,
			Scale: m.Scale, Transform: m.Transform, RefreshRate: m.RefreshRate,
			ActiveWorkspace: WorkspaceRef{ID: m.ActiveWorkspace.ID, Name: m.ActiveWorkspace.Name},
			Focused:         m.Focused,
			Disabled:        m.Disabled,
		})
	}
	return out, nil
}

func allSuffix(includeDisabled bool) string {
	if includeDisabled {
		return " all"
	}
	return ""
}

func (h *Hyprland) GetClients(ctx context.Context, filter ClientFilter) ([]ClientInfo, error) {
	raw, err := h.sendCommand(ctx, []byte("-j/clients"))
	if err != nil {
		return nil, err
	}
	var clients []hyprClient
	if err := json.Unmarshal(raw, &clients); err != nil {
		return nil, fmt.Errorf("hyprland: parse clients json: %w", err)
	}
	out := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		if filter.MappedOnly && !c.Mapped {
			continue
		}
		if filter.Workspace != "" && c.Workspace.Name != filter.Workspace {
			continue
		}
		excluded := false
		for _, ex := range filter.WorkspaceExclude {
			if c.Workspace.Name == ex {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		out = append(out, ClientInfo{
			Address: c.Address, Class: c.Class, Title: c.Title,
			Workspace: WorkspaceRef{ID: c.Workspace.ID, Name: c.Workspace.Name},
			PID:       c.PID, Mapped: c.Mapped, Floating: c.Floating, Pinned: c.Pinned,
			At: c.At, Size: c.Size,
			Fullscreen: c.Fullscreen, Hidden: c.Hidden, XWayland: c.XWayland,
			InitialClass: c.InitialClass, InitialTitle: c.InitialTitle, Grouped: c.Grouped,
		})
	}
	return out, nil
}

func (h *Hyprland) Execute(ctx context.Context, command string, baseCommand string, weak bool) error {
	var raw []byte
	if strings.Contains(command, ";") {
		parts := strings.Split(command, ";")
		for i, p := range parts {
			parts[i] = baseCommand + " " + strings.TrimSpace(p)
		}
		raw = []byte("[[BATCH]] " + strings.Join(parts, " ; "))
	} else {
		prefix := "/"
		raw = []byte(prefix + baseCommand + " " + command)
	}
	resp, err := h.sendCommand(ctx, raw)
	if err != nil {
		return err
	}
	if !isOKResponse(resp) {
		return fmt.Errorf("hyprland: command failed: %s", strings.TrimSpace(string(resp)))
	}
	return nil
}

// isOKResponse checks every line is "ok" (hyprctl repeats "ok" once per
// command in a batch on success; anything else is a failure).
func isOKResponse(resp []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(resp))
	any := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		any = true
		if line != "ok" {
			return false
		}
	}
	return any
}

func (h *Hyprland) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	return h.sendCommand(ctx, []byte("-j/"+command))
}

func (h *Hyprland) ExecuteBatch(ctx context.Context, commands []string) error {
	if len(commands) == 0 {
		return nil
	}
	return h.Execute(ctx, strings.Join(commands, " ; "), "dispatch", true)
}

func (h *Hyprland) Notify(ctx context.Context, message string, durationMS int, color Color) error {
	hex := fmt.Sprintf("rgb(%02x%02x%02x)", color.R, color.G, color.B)
	cmd := fmt.Sprintf("notify -1 %d %s %s", durationMS, hex, quoteForNotify(message))
	return h.Execute(ctx, cmd, "dispatch", true)
}

func quoteForNotify(s string) string {
	return strconv.Quote(s)
}

// ParseEvent implements spec.md §4.4: lines are "NAME>>PAYLOAD\n", mapped to
// (event_NAME, PAYLOAD without trailing newline).
func (h *Hyprland) ParseEvent(raw string) (string, string, bool) {
	raw = strings.TrimRight(raw, "\n")
	idx := strings.Index(raw, ">>")
	if idx < 0 {
		return "", "", false
	}
	name := raw[:idx]
	payload := raw[idx+2:]
	return "event_" + name, payload, true
}

// detectHyprlandIPCDir resolves the per-instance IPC directory the way
// Hyprland itself does: $XDG_RUNTIME_DIR/hypr/$HYPRLAND_INSTANCE_SIGNATURE,
// falling back to the legacy /tmp/hypr path when XDG_RUNTIME_DIR is unset.
func detectHyprlandIPCDir() (string, bool) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", false
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	return runtimeDir + "/hypr/" + sig, true
}
