package backend

import (
	"context"
	"fmt"
)

// The window helpers below are composed purely from Backend.Execute, per
// spec.md §4.4 ("Window helpers composed from the above"). They're free
// functions rather than interface methods so a new backend only has to
// implement the eight primitive operations to get all of these for free —
// mirrors how the teacher composes Compositor.FocusOutput calls in
// cmd/daemon/main.go's LaunchScreensaver loop instead of growing the
// Compositor interface per call site.

func FocusWindow(ctx context.Context, b Backend, address string) error {
	return b.Execute(ctx, fmt.Sprintf("focuswindow address:%s", address), "dispatch", false)
}

func MoveWindowToWorkspace(ctx context.Context, b Backend, address, workspace string, silent bool) error {
	cmd := fmt.Sprintf("movetoworkspacesilent %s,address:%s", workspace, address)
	if !silent {
		cmd = fmt.Sprintf("movetoworkspace %s,address:%s", workspace, address)
	}
	return b.Execute(ctx, cmd, "dispatch", false)
}

func PinWindow(ctx context.Context, b Backend, address string) error {
	return b.Execute(ctx, fmt.Sprintf("pin address:%s", address), "dispatch", true)
}

func CloseWindow(ctx context.Context, b Backend, address string) error {
	return b.Execute(ctx, fmt.Sprintf("closewindow address:%s", address), "dispatch", false)
}

func ResizeWindow(ctx context.Context, b Backend, address string, w, h int) error {
	cmd := fmt.Sprintf("resizewindowpixel exact %d %d,address:%s", w, h, address)
	return b.Execute(ctx, cmd, "dispatch", false)
}

func MoveWindow(ctx context.Context, b Backend, address string, dx, dy int) error {
	cmd := fmt.Sprintf("movewindowpixel %d %d,address:%s", dx, dy, address)
	return b.Execute(ctx, cmd, "dispatch", false)
}

func ToggleFloating(ctx context.Context, b Backend, address string) error {
	return b.Execute(ctx, fmt.Sprintf("togglefloating address:%s", address), "dispatch", false)
}

func SetKeyword(ctx context.Context, b Backend, key, value string) error {
	return b.Execute(ctx, fmt.Sprintf("%s %s", key, value), "keyword", true)
}
