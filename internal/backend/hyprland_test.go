package backend

import "testing"

func TestHyprlandParseEvent(t *testing.T) {
	h := &Hyprland{}
	tests := []struct {
		line        string
		wantHandler string
		wantPayload string
		wantOK      bool
	}{
		{"activewindowv2>>abcdef1234567890\n", "event_activewindowv2", "abcdef1234567890", true},
		{"workspace>>2\n", "event_workspace", "2", true},
		{"garbage line with no separator", "", "", false},
		{"monitoradded>>HDMI-A-1", "event_monitoradded", "HDMI-A-1", true},
	}
	for _, tt := range tests {
		handler, payload, ok := h.ParseEvent(tt.line)
		if ok != tt.wantOK || handler != tt.wantHandler || payload != tt.wantPayload {
			t.Errorf("ParseEvent(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, handler, payload, ok, tt.wantHandler, tt.wantPayload, tt.wantOK)
		}
	}
}

func TestIsOKResponse(t *testing.T) {
	tests := []struct {
		resp string
		want bool
	}{
		{"ok\n", true},
		{"ok\nok\nok\n", true},
		{"", false},
		{"invalid dispatcher\n", false},
		{"ok\nfailed\n", false},
	}
	for _, tt := range tests {
		if got := isOKResponse([]byte(tt.resp)); got != tt.want {
			t.Errorf("isOKResponse(%q) = %v, want %v", tt.resp, got, tt.want)
		}
	}
}
