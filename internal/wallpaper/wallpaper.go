// Package wallpaper implements background rotation with generated color
// palettes (SPEC_FULL.md §4's "wallpaper rotation" domain-stack feature).
//
// Cycler's interval-gated, random-or-sequential selection is adapted from
// the teacher's internal/animations/animation_cycle.go AnimationCycler,
// narrowed from a terminal-animation playlist to an image-path playlist.
package wallpaper

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/palette"
)

// Cycler selects the next wallpaper from a fixed image list on an
// interval, optionally in random order, and can be paused/resumed.
type Cycler struct {
	images      []string
	currentIdx  int
	lastSwitch  time.Time
	interval    time.Duration
	randomOrder bool
	userPaused  bool
	idlePaused  bool
}

func NewCycler(images []string, interval time.Duration, randomOrder bool) *Cycler {
	return &Cycler{images: images, interval: interval, randomOrder: randomOrder, lastSwitch: time.Now()}
}

func (c *Cycler) SetImages(images []string) {
	c.images = images
	if c.currentIdx >= len(images) {
		c.currentIdx = 0
	}
}

// SetPaused is the explicit "wall clear"/"wall next" pause toggle.
func (c *Cycler) SetPaused(paused bool) { c.userPaused = paused }

// SetIdlePaused is the activity-driven pause toggle (idle.IdleDetector),
// independent of the explicit user toggle: going idle never clears a user
// pause, and a user pause outlives idle/resume transitions.
func (c *Cycler) SetIdlePaused(paused bool) { c.idlePaused = paused }

func (c *Cycler) Paused() bool { return c.userPaused || c.idlePaused }

// Current returns the currently-selected image path, or "" if the list is
// empty.
func (c *Cycler) Current() string {
	if len(c.images) == 0 {
		return ""
	}
	return c.images[c.currentIdx]
}

// Due reports whether enough time has elapsed since the last switch.
func (c *Cycler) Due(now time.Time) bool {
	return !c.Paused() && now.Sub(c.lastSwitch) >= c.interval
}

// Advance moves to the next image (random or sequential), resetting the
// switch timer, and returns the new current image.
func (c *Cycler) Advance(now time.Time) (string, error) {
	if len(c.images) == 0 {
		return "", fmt.Errorf("wallpaper: no images configured")
	}
	c.lastSwitch = now
	if len(c.images) == 1 {
		return c.images[0], nil
	}
	if c.randomOrder {
		next := rand.Intn(len(c.images))
		if next == c.currentIdx {
			next = (next + 1) % len(c.images)
		}
		c.currentIdx = next
	} else {
		c.currentIdx = (c.currentIdx + 1) % len(c.images)
	}
	return c.images[c.currentIdx], nil
}

// Theme is the generated palette file's content: the active wallpaper path
// plus its extracted dominant colors, written so shells/bars can source it.
type Theme struct {
	Wallpaper string
	Colors    []palette.Color
}

// GeneratePalette decodes path and extracts k dominant colors.
func GeneratePalette(path string, k int) ([]palette.Color, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wallpaper: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("wallpaper: decode %s: %w", path, err)
	}
	return palette.Extract(img, k, time.Now().UnixNano())
}

// RenderPalette renders theme's dominant colors as a row of lipgloss-styled
// swatches plus hex labels, for the "wall preview" command's reply body.
func RenderPalette(theme Theme) string {
	if len(theme.Colors) == 0 {
		return "wallpaper: no palette generated yet"
	}
	var swatches, labels []string
	for _, c := range theme.Colors {
		hex := c.Hex()
		swatches = append(swatches, lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("   "))
		labels = append(labels, lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(hex))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, swatches...)
	header := lipgloss.NewStyle().Bold(true).Render(theme.Wallpaper)
	return lipgloss.JoinVertical(lipgloss.Left, header, row, strings.Join(labels, " "))
}

// WriteThemeFile renders theme as shell-sourceable `key=value` lines
// (WALLPAPER, COLOR0.. ) to path.
func WriteThemeFile(path string, theme Theme) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("wallpaper: mkdir theme dir: %w", err)
	}
	content := fmt.Sprintf("WALLPAPER=%q\n", theme.Wallpaper)
	for i, c := range theme.Colors {
		content += fmt.Sprintf("COLOR%d=%q\n", i, c.Hex())
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Apply pushes the given wallpaper path to the backend for every monitor
// (hyprpaper's preload+wallpaper pair, issued per spec.md's batched-dispatch
// idiom; other backends translate the same two logical steps).
func Apply(ctx context.Context, back backend.Backend, path string) error {
	monitors, err := back.GetMonitors(ctx, false)
	if err != nil {
		return fmt.Errorf("wallpaper: get_monitors: %w", err)
	}
	cmds := make([]string, 0, len(monitors)+1)
	cmds = append(cmds, fmt.Sprintf("hyprpaper preload %s", path))
	for _, m := range monitors {
		cmds = append(cmds, fmt.Sprintf("hyprpaper wallpaper %s,%s", m.Name, path))
	}
	return back.ExecuteBatch(ctx, cmds)
}

// Run drives the cycle loop until ctx is cancelled: on each due tick (or an
// external kick via next), it advances the cycler, applies the new
// wallpaper, regenerates the palette, and writes the theme file. onTheme,
// if non-nil, is called with each newly generated Theme (the "wall preview"
// command's data source); it must not block.
func Run(ctx context.Context, log zerolog.Logger, back backend.Backend, c *Cycler, themePath string, paletteSize int, next <-chan struct{}, onTheme func(Theme)) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	tick := func() {
		if !c.Due(time.Now()) {
			return
		}
		path, err := c.Advance(time.Now())
		if err != nil {
			return
		}
		if err := Apply(ctx, back, path); err != nil {
			log.Warn().Err(err).Msg("wallpaper: apply failed")
			return
		}
		colors, err := GeneratePalette(path, paletteSize)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("wallpaper: palette extraction failed")
			colors = nil
		}
		theme := Theme{Wallpaper: path, Colors: colors}
		if themePath != "" {
			if err := WriteThemeFile(themePath, theme); err != nil {
				log.Warn().Err(err).Msg("wallpaper: theme file write failed")
			}
		}
		if onTheme != nil {
			onTheme(theme)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		case <-next:
			c.lastSwitch = time.Time{} // force Due() true regardless of interval
			tick()
		}
	}
}
