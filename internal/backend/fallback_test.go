package backend

import "testing"

func TestParseWlrRandr(t *testing.T) {
	text := `DP-1 "Some Monitor Inc 27-inch"
  Enabled: yes
  Modes:
    3440x1440@144.001999Hz (current, preferred)
    3440x1440@100.000000Hz
  Position: 1920,0
  Scale: 1.000000

HDMI-A-1 "Other Display"
  Enabled: yes
  Modes:
    1920x1080@60.000000Hz (current)
  Position: 0,0
  Scale: 1.500000
`
	monitors := parseWlrRandr(text)
	if len(monitors) != 2 {
		t.Fatalf("got %d monitors, want 2", len(monitors))
	}
	if monitors[0].Name != "DP-1" || monitors[0].Width != 3440 || monitors[0].Height != 1440 {
		t.Errorf("monitor[0] = %+v", monitors[0])
	}
	if monitors[0].X != 1920 {
		t.Errorf("monitor[0].X = %d, want 1920", monitors[0].X)
	}
	if monitors[1].Name != "HDMI-A-1" || monitors[1].Scale != 1.5 {
		t.Errorf("monitor[1] = %+v", monitors[1])
	}
}

func TestEffectiveSizeTransformSwap(t *testing.T) {
	m := MonitorInfo{Width: 1920, Height: 1080, Scale: 1, Transform: 1}
	w, h := m.EffectiveSize()
	if w != 1080 || h != 1920 {
		t.Errorf("EffectiveSize() with odd transform = (%v, %v), want (1080, 1920)", w, h)
	}

	m2 := MonitorInfo{Width: 1920, Height: 1080, Scale: 2, Transform: 0}
	w2, h2 := m2.EffectiveSize()
	if w2 != 960 || h2 != 540 {
		t.Errorf("EffectiveSize() with scale 2 = (%v, %v), want (960, 540)", w2, h2)
	}
}
