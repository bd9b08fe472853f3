// Package wallpapers implements the "wallpapers" glue plugin (SPEC_FULL.md
// §4): background rotation with generated color palettes, driven by
// internal/wallpaper and internal/palette.
package wallpapers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
	"github.com/Nomadcxx/pyprlandd/internal/wallpaper"
	"github.com/Nomadcxx/pyprlandd/pkg/idle"
)

const PluginName = "wallpapers"

// idleTimeout is the inactivity threshold handed to idle.IdleDetector for
// pausing rotation. The detector's ticker always checks it, and its
// hypridle/xprintidle monitors use the same threshold when they run.
const idleTimeout = 5 * time.Minute

type Plugin struct {
	pluginhost.Base

	log zerolog.Logger

	cycler      *wallpaper.Cycler
	themePath   string
	paletteSize int

	next     chan struct{}
	cancel   context.CancelFunc
	detector *idle.IdleDetector

	themeMu   sync.Mutex
	lastTheme wallpaper.Theme
}

func New() *Plugin { return &Plugin{paletteSize: 6} }

func (p *Plugin) Init(ctx context.Context) error {
	p.log = zerolog.Nop()
	if l, ok := p.Base.Backend.(interface{ Logger() zerolog.Logger }); ok {
		p.log = l.Logger()
	}
	p.next = make(chan struct{}, 1)
	return nil
}

func (p *Plugin) LoadConfig(v *schema.View) error {
	var images []string
	for _, raw := range v.GetList("path") {
		if s, ok := raw.(string); ok {
			images = append(images, expandAndCollect(s)...)
		}
	}
	if single := v.GetString("path", ""); len(images) == 0 && single != "" {
		images = expandAndCollect(single)
	}

	interval := time.Duration(v.GetInt("interval", 10)) * time.Minute
	randomOrder := v.GetBool("random", true)

	if p.cycler == nil {
		p.cycler = wallpaper.NewCycler(images, interval, randomOrder)
	} else {
		p.cycler.SetImages(images)
	}

	p.paletteSize = v.GetInt("palette_size", 6)
	p.themePath = v.GetString("theme_file", defaultThemePath())
	return nil
}

func defaultThemePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "pyprlandd", "wallpaper-theme.env")
}

// expandAndCollect lists image files directly under dir (spec.md's
// "path" config accepts a directory of images, mirroring the original
// pyprland wallpapers plugin's recursive file listing, narrowed to a
// single directory level for this implementation).
func expandAndCollect(dir string) []string {
	expanded := os.ExpandEnv(dir)
	entries, err := os.ReadDir(expanded)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
			out = append(out, filepath.Join(expanded, e.Name()))
		}
	}
	return out
}

func (p *Plugin) OnReload(ctx context.Context, reason pluginhost.ReloadReason) error {
	if reason == pluginhost.ReasonInit {
		runCtx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go wallpaper.Run(runCtx, p.log, p.Backend, p.cycler, p.themePath, p.paletteSize, p.next, p.setLastTheme)

		p.detector = idle.NewIdleDetector(idleTimeout, zerolog.GlobalLevel() <= zerolog.DebugLevel)
		if err := p.detector.Start(runCtx); err != nil {
			p.log.Warn().Err(err).Msg("wallpapers: idle detector unavailable, rotation never pauses for inactivity")
		} else {
			go p.watchIdle(runCtx)
		}
	}
	return nil
}

// watchIdle pauses rotation while the user is away and resumes it on the
// next detected activity, so unattended sessions don't keep regenerating
// palettes and rewriting the theme file for nobody to see.
func (p *Plugin) watchIdle(ctx context.Context) {
	events := p.detector.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-events.Idle:
			p.cycler.SetIdlePaused(true)
		case <-events.Resume:
			p.cycler.SetIdlePaused(false)
		}
	}
}

func (p *Plugin) Exit(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func (p *Plugin) Commands() map[string]pluginhost.Command {
	return map[string]pluginhost.Command{
		"wall": {Func: p.runWall, RequiredArg: "next|clear|preview", Short: "Skip to the next wallpaper, clear rotation, or preview the active palette."},
	}
}

func (p *Plugin) setLastTheme(t wallpaper.Theme) {
	p.themeMu.Lock()
	defer p.themeMu.Unlock()
	p.lastTheme = t
}

func (p *Plugin) Events() map[string]pluginhost.EventFunc {
	return map[string]pluginhost.EventFunc{
		"event_monitoraddedv2": p.onMonitorAdded,
	}
}

func (p *Plugin) runWall(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("wallpapers: missing required next|clear|preview argument")
	}
	switch {
	case strings.HasPrefix(args[0], "n"):
		p.cycler.SetPaused(false)
		select {
		case p.next <- struct{}{}:
		default:
		}
		return "", nil
	case strings.HasPrefix(args[0], "c"):
		p.cycler.SetPaused(true)
		return "", nil
	case strings.HasPrefix(args[0], "p"):
		p.themeMu.Lock()
		theme := p.lastTheme
		p.themeMu.Unlock()
		return wallpaper.RenderPalette(theme), nil
	default:
		return "", fmt.Errorf("wallpapers: unknown argument %q", args[0])
	}
}

func (p *Plugin) onMonitorAdded(ctx context.Context, payload string) {
	select {
	case p.next <- struct{}{}:
	default:
	}
}
