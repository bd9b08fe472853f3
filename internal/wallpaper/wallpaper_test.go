package wallpaper

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
)

type fakeBackend struct {
	monitors []backend.MonitorInfo
	batches  [][]string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) GetClients(ctx context.Context, filter backend.ClientFilter) ([]backend.ClientInfo, error) {
	return nil, nil
}
func (f *fakeBackend) GetMonitors(ctx context.Context, includeDisabled bool) ([]backend.MonitorInfo, error) {
	return f.monitors, nil
}
func (f *fakeBackend) Execute(ctx context.Context, command, baseCommand string, weak bool) error {
	return nil
}
func (f *fakeBackend) ExecuteJSON(ctx context.Context, command string) ([]byte, error) { return nil, nil }
func (f *fakeBackend) ExecuteBatch(ctx context.Context, commands []string) error {
	f.batches = append(f.batches, commands)
	return nil
}
func (f *fakeBackend) Notify(ctx context.Context, message string, durationMS int, color backend.Color) error {
	return nil
}
func (f *fakeBackend) ParseEvent(raw string) (string, string, bool) { return "", "", false }
func (f *fakeBackend) EventSocketPath() string                      { return "" }

func TestCyclerAdvanceSequential(t *testing.T) {
	c := NewCycler([]string{"a.png", "b.png", "c.png"}, time.Hour, false)
	next, err := c.Advance(time.Now())
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if next != "b.png" {
		t.Errorf("Advance() = %q, want b.png", next)
	}
}

func TestCyclerDueRespectsInterval(t *testing.T) {
	c := NewCycler([]string{"a.png", "b.png"}, time.Hour, false)
	if c.Due(time.Now()) {
		t.Error("Due() = true immediately after construction, want false")
	}
}

func TestCyclerPausedNeverDue(t *testing.T) {
	c := NewCycler([]string{"a.png"}, time.Nanosecond, false)
	c.SetPaused(true)
	time.Sleep(time.Millisecond)
	if c.Due(time.Now()) {
		t.Error("Due() = true while paused, want false")
	}
}

func TestCyclerAdvanceEmptyErrors(t *testing.T) {
	c := NewCycler(nil, time.Second, false)
	if _, err := c.Advance(time.Now()); err == nil {
		t.Error("Advance with no images: want error")
	}
}

func TestApplyIssuesHyprpaperBatch(t *testing.T) {
	back := &fakeBackend{monitors: []backend.MonitorInfo{{Name: "DP-1"}, {Name: "HDMI-A-1"}}}
	if err := Apply(context.Background(), back, "/tmp/wall.png"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(back.batches) != 1 || len(back.batches[0]) != 3 {
		t.Fatalf("batches = %v, want one preload + two wallpaper commands", back.batches)
	}
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 150, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestGeneratePaletteAndWriteThemeFile(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "wall.png")
	writeTestPNG(t, imgPath)

	colors, err := GeneratePalette(imgPath, 2)
	if err != nil {
		t.Fatalf("GeneratePalette: %v", err)
	}
	if len(colors) == 0 {
		t.Fatal("GeneratePalette returned no colors")
	}

	themePath := filepath.Join(dir, "theme", "current.env")
	if err := WriteThemeFile(themePath, Theme{Wallpaper: imgPath, Colors: colors}); err != nil {
		t.Fatalf("WriteThemeFile: %v", err)
	}
	data, err := os.ReadFile(themePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("theme file is empty")
	}
}
