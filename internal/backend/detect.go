package backend

import (
	"fmt"
	"os/exec"

	"github.com/Nomadcxx/pyprlandd/internal/pyprerrors"
)

// Detect resolves the backend per spec.md §4.1: socket-based detection
// first (Hyprland/Niri env vars), else probe wlr-randr, else probe xrandr,
// else fail with NO_BACKEND. Grounded on the teacher's
// internal/compositor/compositor.go DetectCompositor, generalized from
// "probe binaries and run a version command" to "check for the IPC
// environment variables the spec requires as the primary signal".
func Detect() (Backend, error) {
	if dir, ok := detectHyprlandIPCDir(); ok {
		return NewHyprland(dir), nil
	}
	if sock, ok := detectNiriSocket(); ok {
		return NewNiri(sock), nil
	}
	if _, err := exec.LookPath("wlr-randr"); err == nil {
		return NewWaylandFallback(), nil
	}
	if _, err := exec.LookPath("xrandr"); err == nil {
		return NewX11Fallback(), nil
	}
	return nil, pyprerrors.New(pyprerrors.KindBackendUnavailable,
		fmt.Errorf("no compositor detected (checked Hyprland, Niri, wlr-randr, xrandr)"))
}
