package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Niri talks to the single JSON request/response socket named by
// $NIRI_SOCKET (spec.md §4.4, §6). Grounded on the teacher's
// internal/compositor/niri.go (text-output parsing via "niri msg") but
// against Niri's actual JSON IPC instead of shelling out to the niri CLI.
type Niri struct {
	socketPath  string
	dialTimeout time.Duration
}

func NewNiri(socketPath string) *Niri {
	return &Niri{socketPath: socketPath, dialTimeout: 2 * time.Second}
}

func (n *Niri) Name() string            { return "niri" }
func (n *Niri) EventSocketPath() string { return n.socketPath }

// OpenEventStream issues the {"EventStream":{}} request and scans the
// resulting stream of newline-delimited JSON event objects.
func (n *Niri) OpenEventStream(ctx context.Context) (*bufio.Scanner, func() error, error) {
	return OpenNiriEventStream(ctx, n.socketPath)
}

func (n *Niri) request(ctx context.Context, req any) (json.RawMessage, error) {
	d := net.Dialer{Timeout: n.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", n.socketPath)
	if err != nil {
		return nil, fmt.Errorf("niri: dial socket: %w", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("niri: encode request: %w", err)
	}

	var raw json.RawMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("niri: decode response: %w", err)
	}
	return raw, nil
}

type niriOutput struct {
	Name        string `json:"name"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	CurrentMode *struct {
		Width   int     `json:"width"`
		Height  int     `json:"height"`
		Refresh float64 `json:"refresh_rate"`
	} `json:"current_mode"`
	Modes []struct {
		Width, Height int
		Refresh       float64
	} `json:"modes"`
	LogicalOutput *struct {
		X       int     `json:"x"`
		Y       int     `json:"y"`
		Scale   float64 `json:"scale"`
		Transform string `json:"transform"`
	} `json:"logical"`
}

func (n *Niri) GetMonitors(ctx context.Context, includeDisabled bool) ([]MonitorInfo, error) {
	raw, err := n.request(ctx, map[string]string{"RequestKind": "Outputs"})
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Ok struct {
			Outputs map[string]niriOutput `json:"Outputs"`
		} `json:"Ok"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("niri: parse outputs json: %w", err)
	}
	out := make([]MonitorInfo, 0, len(wrapper.Ok.Outputs))
	for connector, o := range wrapper.Ok.Outputs {
		mi := MonitorInfo{
			Name:        connector,
			Description: strings.TrimSpace(o.Make + " " + o.Model),
			Scale:       1,
		}
		if o.CurrentMode != nil {
			mi.Width = o.CurrentMode.Width
			mi.Height = o.CurrentMode.Height
			mi.RefreshRate = o.CurrentMode.Refresh
		}
		if o.LogicalOutput != nil {
			mi.X = o.LogicalOutput.X
			mi.Y = o.LogicalOutput.Y
			if o.LogicalOutput.Scale > 0 {
				mi.Scale = o.LogicalOutput.Scale
			}
			mi.Transform = niriTransformToInt(o.LogicalOutput.Transform)
		} else {
			mi.Disabled = true
		}
		if !mi.Disabled || includeDisabled {
			out = append(out, mi)
		}
	}
	return out, nil
}

func niriTransformToInt(t string) int {
	switch t {
	case "Normal", "":
		return 0
	case "90":
		return 1
	case "180":
		return 2
	case "270":
		return 3
	case "Flipped":
		return 4
	case "Flipped90":
		return 5
	case "Flipped180":
		return 6
	case "Flipped270":
		return 7
	default:
		return 0
	}
}

type niriWindow struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	AppID       string `json:"app_id"`
	PID         int    `json:"pid"`
	WorkspaceID int    `json:"workspace_id"`
	IsFocused   bool   `json:"is_focused"`
	IsFloating  bool   `json:"is_floating"`
}

func (n *Niri) GetClients(ctx context.Context, filter ClientFilter) ([]ClientInfo, error) {
	raw, err := n.request(ctx, map[string]string{"RequestKind": "Windows"})
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Ok struct {
			Windows []niriWindow `json:"Windows"`
		} `json:"Ok"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("niri: parse windows json: %w", err)
	}
	out := make([]ClientInfo, 0, len(wrapper.Ok.Windows))
	for _, w := range wrapper.Ok.Windows {
		ci := ClientInfo{
			Address:  fmt.Sprintf("0x%012x", w.ID),
			Class:    w.AppID,
			Title:    w.Title,
			PID:      w.PID,
			Mapped:   true,
			Floating: w.IsFloating,
			Workspace: WorkspaceRef{ID: w.WorkspaceID},
		}
		if filter.MappedOnly && !ci.Mapped {
			continue
		}
		out = append(out, ci)
	}
	return out, nil
}

func (n *Niri) Execute(ctx context.Context, command string, baseCommand string, weak bool) error {
	action := map[string]any{"Action": niriActionPayload(command)}
	raw, err := n.request(ctx, action)
	if err != nil {
		return err
	}
	var wrapper struct {
		Err *string `json:"Err"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Err != nil {
		return fmt.Errorf("niri: action failed: %s", *wrapper.Err)
	}
	return nil
}

// niriActionPayload maps the Hyprland-shaped "name arg1 arg2" dispatch
// strings our dispatcher/plugins issue into Niri's tagged-union Action
// request, e.g. "focus-monitor HDMI-A-1" -> {"FocusMonitor":{"output":"HDMI-A-1"}}.
func niriActionPayload(command string) map[string]any {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return map[string]any{}
	}
	name := niriActionName(parts[0])
	args := parts[1:]
	switch name {
	case "FocusMonitor", "MoveWindowToMonitor":
		if len(args) > 0 {
			return map[string]any{name: map[string]any{"output": args[0]}}
		}
	}
	return map[string]any{name: map[string]any{}}
}

func niriActionName(dashed string) string {
	parts := strings.Split(dashed, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func (n *Niri) ExecuteJSON(ctx context.Context, command string) ([]byte, error) {
	raw, err := n.request(ctx, map[string]string{"RequestKind": command})
	return raw, err
}

func (n *Niri) ExecuteBatch(ctx context.Context, commands []string) error {
	for _, c := range commands {
		if err := n.Execute(ctx, c, "dispatch", true); err != nil {
			return err
		}
	}
	return nil
}

func (n *Niri) Notify(ctx context.Context, message string, durationMS int, color Color) error {
	return notifySend(ctx, message, durationMS)
}

// ParseEvent implements spec.md §4.4: Niri event lines are JSON objects
// {"Variant": {"type": X, ...}} routed to handler niri_<X_lowercased>. We
// route on the outer variant's key directly (lowercased), matching the
// teacher's regex-driven output parsing style adapted to JSON.
func (n *Niri) ParseEvent(raw string) (string, string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", "", false
	}
	for variant, payload := range obj {
		return "niri_" + strings.ToLower(variant), string(payload), true
	}
	return "", "", false
}

func detectNiriSocket() (string, bool) {
	sock := os.Getenv("NIRI_SOCKET")
	if sock == "" {
		return "", false
	}
	return sock, true
}

// OpenNiriEventStream is a small helper used by Niri.OpenEventStream to
// tolerate Niri's event stream, which is a stream of newline-delimited JSON
// objects once an {"EventStream":{}} request has been sent.
func OpenNiriEventStream(ctx context.Context, socketPath string) (*bufio.Scanner, func() error, error) {
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("niri: dial event socket: %w", err)
	}
	enc := json.NewEncoder(conn)
	if err := enc.Encode(map[string]any{"EventStream": map[string]any{}}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("niri: request event stream: %w", err)
	}
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc, conn.Close, nil
}
