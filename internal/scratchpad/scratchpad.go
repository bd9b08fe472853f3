// Package scratchpad implements the drop-down scratchpad engine (spec.md
// §4.7): per-entry process lifecycle, window matching, show/hide
// transitions with multi-window tracking, and unfocus hysteresis.
//
// Grounded on the teacher's internal/systemd/systemd.go (mutex-guarded
// process slice, PID-based liveness, Kill+Wait) for process tracking, and
// pkg/multi_display/multi_display.go (per-output position bookkeeping) for
// the show/hide geometry bookkeeping — reworked into the state machine and
// database this package requires.
package scratchpad

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/schema"
)

// State is a scratchpad's lifecycle state (spec.md §4.7).
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateRespawning
	StateHidden
	StateVisible
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "CONFIGURED"
	case StateRespawning:
		return "RESPAWNING"
	case StateHidden:
		return "HIDDEN"
	case StateVisible:
		return "VISIBLE"
	default:
		return "UNCONFIGURED"
	}
}

// afterShowInhibition is the window after a show during which unfocus
// events are ignored, per spec.md §4.7.
const afterShowInhibition = 300 * time.Millisecond

// MatchField is the client property a scratchpad is matched by.
type MatchField string

const (
	MatchClass        MatchField = "class"
	MatchInitialClass MatchField = "initialClass"
	MatchTitle        MatchField = "title"
	MatchInitialTitle MatchField = "initialTitle"
)

// Config is a scratchpad's resolved configuration (spec.md §4.7's per-entry
// record, read through the view's per-monitor override lookup).
type Config struct {
	Command         string
	MatchField      MatchField
	MatchValue      string
	matchRegex      *regexp.Regexp // set if MatchValue has a "re:" prefix
	Lazy            bool
	Multi           bool
	ProcessTracking bool
	Pinned          bool
	Unfocus         string // "" or "hide"
	Hysteresis      time.Duration
	HideDelay       time.Duration
	RestoreExcluded bool
	Excludes        []string // other scratchpad uids to hide on show; ["*"] means all others
	Size            string
	MaxSize         string
	Animation       string // edge name, or "" for no animation
}

// overridable lists every Config field name the per-monitor override
// (monitor.<name>.<key>) may shadow, per spec.md §4.7.
var overridable = []string{
	"command", "match", "class", "initialClass", "title", "initialTitle",
	"lazy", "multi", "process_tracking", "pinned", "unfocus", "hysteresis",
	"hide_delay", "restore_excluded", "excludes", "size", "max_size", "animation",
}

// parseExcludes reads the "excludes" key, accepting either a bare "*" string
// (exclude every other configured scratchpad) or a list of uids.
func parseExcludes(v *schema.View) []string {
	switch val := v.Get("excludes", nil).(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// LoadConfigForMonitor resolves a scratchpad's config for a given active
// monitor: `monitor.<name>.<key>` overrides the top-level key wherever the
// override view has it explicitly set (spec.md §4.7's per-monitor
// overrides).
func LoadConfigForMonitor(v *schema.View, monitor string) (Config, error) {
	override := v.Sub("monitor").Sub(monitor)
	merged := map[string]any{}
	for _, key := range overridable {
		if override.HasExplicit(key) {
			merged[key] = override.Get(key, nil)
		} else if v.HasExplicit(key) {
			merged[key] = v.Get(key, nil)
		}
	}
	return LoadConfig(schema.NewView(nil, merged, zerolog.Nop()))
}

// LoadConfig parses a scratchpad's resolved view into a Config. Callers
// needing per-monitor overrides should use LoadConfigForMonitor instead.
func LoadConfig(v *schema.View) (Config, error) {
	c := Config{
		Command:         v.GetString("command", ""),
		MatchField:      MatchField(v.GetString("match", "class")),
		MatchValue:      v.GetString("class", ""),
		Lazy:            v.GetBool("lazy", false),
		Multi:           v.GetBool("multi", false),
		ProcessTracking: v.GetBool("process_tracking", true),
		Pinned:          v.GetBool("pinned", false),
		Unfocus:         v.GetString("unfocus", ""),
		Hysteresis:      time.Duration(v.GetFloat("hysteresis", 0.3) * float64(time.Second)),
		HideDelay:       time.Duration(v.GetFloat("hide_delay", 0) * float64(time.Second)),
		RestoreExcluded: v.GetBool("restore_excluded", false),
		Excludes:        parseExcludes(v),
		Size:            v.GetString("size", ""),
		MaxSize:         v.GetString("max_size", ""),
		Animation:       v.GetString("animation", ""),
	}
	if c.MatchValue == "" {
		switch c.MatchField {
		case MatchInitialClass:
			c.MatchValue = v.GetString("initialClass", "")
		case MatchTitle:
			c.MatchValue = v.GetString("title", "")
		case MatchInitialTitle:
			c.MatchValue = v.GetString("initialTitle", "")
		}
	}
	if strings.HasPrefix(c.MatchValue, "re:") {
		re, err := regexp.Compile(strings.TrimPrefix(c.MatchValue, "re:"))
		if err != nil {
			return c, fmt.Errorf("scratchpad: invalid match regex %q: %w", c.MatchValue, err)
		}
		c.matchRegex = re
	}
	return c, nil
}

// Matches reports whether a client satisfies this scratchpad's match rule.
func (c Config) Matches(client backend.ClientInfo) bool {
	var field string
	switch c.MatchField {
	case MatchInitialClass:
		field = client.InitialClass
	case MatchTitle:
		field = client.Title
	case MatchInitialTitle:
		field = client.InitialTitle
	default:
		field = client.Class
	}
	if c.matchRegex != nil {
		return c.matchRegex.MatchString(field)
	}
	return field == c.MatchValue
}

// spaceIdentifier is the (workspace, monitor) pair captured at show time
// (spec.md §3's Scratch.meta.space_identifier), used to decide whether a
// re-toggle should re-show in place or move the scratchpad.
type spaceIdentifier struct {
	workspace string
	monitor   string
}

// Scratch is one registered scratchpad (spec.md §3's Scratch record).
type Scratch struct {
	UID    string
	Config Config

	mu              sync.Mutex
	state           State
	cmd             *exec.Cmd
	pid             int
	address         string              // primary client address, "" if unmatched
	extraAddr       map[string]struct{} // auxiliary windows (multi=true)
	extraPositions  map[string][2]int   // address -> offset from primary
	visible         bool
	monitor         string // monitor last shown on
	initialized     bool   // false->true only; reset() clears it
	shouldHide      bool
	noPID           bool
	lastShown       time.Time
	spaceID         spaceIdentifier
	primaryOffset   [2]int
	focusTracker    string // window focused immediately before show, for restore
	hideTimer       *time.Timer
	transitioning   bool
	excluded        []string // other uids this scratchpad auto-hid on show, pending restore on hide
}

func newScratch(uid string, cfg Config) *Scratch {
	return &Scratch{
		UID:            uid,
		Config:         cfg,
		state:          StateUnconfigured,
		extraAddr:      map[string]struct{}{},
		extraPositions: map[string][2]int{},
	}
}

// SpecialWorkspace is this scratchpad's private hidden workspace name.
func (s *Scratch) SpecialWorkspace() string {
	return "special:scratch_" + s.UID
}

// State returns the scratchpad's current lifecycle state.
func (s *Scratch) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Address returns the scratchpad's primary matched window address, "" if
// unmatched.
func (s *Scratch) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Visible reports whether the scratchpad is currently shown.
func (s *Scratch) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Monitor returns the monitor the scratchpad was last shown on.
func (s *Scratch) Monitor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor
}

// ExtraAddrs returns the auxiliary window addresses folded into this
// scratchpad (spec.md §4.7's multi-window tracking).
func (s *Scratch) ExtraAddrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.extraAddr))
	for a := range s.extraAddr {
		out = append(out, a)
	}
	return out
}

// beginTransition enforces spec.md §4.7's "at most one concurrent show or
// hide transition per scratchpad". Returns false if one is already running.
func (s *Scratch) beginTransition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transitioning {
		return false
	}
	s.transitioning = true
	return true
}

func (s *Scratch) endTransition() {
	s.mu.Lock()
	s.transitioning = false
	s.mu.Unlock()
}

// reset clears match/process state (spec.md §3: "initialized can only
// transition false→true, resets on reset").
func (s *Scratch) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateConfigured
	s.address = ""
	s.extraAddr = map[string]struct{}{}
	s.extraPositions = map[string][2]int{}
	s.initialized = false
	s.visible = false
	s.monitor = ""
	s.pid = 0
	s.cmd = nil
	s.excluded = nil
}

// Manager is the scratchpad database (spec.md §3): uid/pid/address indices
// over a set of Scratch instances, plus the per-scratchpad lifecycle and
// show/hide orchestration.
type Manager struct {
	log     zerolog.Logger
	back    backend.Backend
	focused func() string // returns state.SharedState.ActiveWindow() style lookup

	mu        sync.RWMutex
	byUID     map[string]*Scratch
	byPID     map[int]string // pid -> uid
	byAddress map[string]string // address (primary or extra) -> uid
}

func NewManager(log zerolog.Logger, back backend.Backend) *Manager {
	return &Manager{
		log:       log,
		back:      back,
		byUID:     map[string]*Scratch{},
		byPID:     map[int]string{},
		byAddress: map[string]string{},
	}
}

// Configure registers or re-registers a scratchpad by uid, per spec.md
// §4.7's UNCONFIGURED -> CONFIGURED transition. Windowrules would be
// installed here before the process spawns (backend.Execute "keyword
// windowrule ..."); the rule text itself is built by ruleFor.
func (m *Manager) Configure(ctx context.Context, uid string, cfg Config) (*Scratch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for other, sc := range m.byUID {
		if other != uid && sc.Config.MatchField == MatchClass && cfg.MatchField == MatchClass &&
			sc.Config.MatchValue != "" && sc.Config.MatchValue == cfg.MatchValue {
			return nil, fmt.Errorf("scratchpad: duplicate class %q shared by %q and %q", cfg.MatchValue, other, uid)
		}
	}

	sc, ok := m.byUID[uid]
	if !ok {
		sc = newScratch(uid, cfg)
		m.byUID[uid] = sc
	} else {
		sc.mu.Lock()
		sc.Config = cfg
		sc.mu.Unlock()
	}
	sc.mu.Lock()
	sc.state = StateConfigured
	sc.mu.Unlock()

	for _, rule := range ruleFor(sc) {
		if err := m.back.Execute(ctx, rule, "keyword", true); err != nil {
			m.log.Warn().Err(err).Str("uid", uid).Msg("scratchpad: windowrule install failed")
		}
	}

	if !cfg.Lazy {
		if err := m.spawn(ctx, sc); err != nil {
			return sc, err
		}
	}
	return sc, nil
}

// ruleFor builds the windowrule line that sends a scratchpad's window to
// its private special workspace before it spawns. It emits no size or
// position rule.
func ruleFor(sc *Scratch) []string {
	tag := "scratchpad:" + sc.UID
	return []string{
		fmt.Sprintf("windowrule workspace %s silent,tag:%s", sc.SpecialWorkspace(), tag),
	}
}

// Get looks up a scratchpad by uid.
func (m *Manager) Get(uid string) (*Scratch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.byUID[uid]
	return sc, ok
}

// ByAddress looks up the owning scratchpad for a primary or extra window
// address.
func (m *Manager) ByAddress(addr string) (*Scratch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.byAddress[addr]
	if !ok {
		return nil, false
	}
	return m.byUID[uid], true
}

// All returns every registered scratchpad.
func (m *Manager) All() []*Scratch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Scratch, 0, len(m.byUID))
	for _, sc := range m.byUID {
		out = append(out, sc)
	}
	return out
}

// spawn launches a scratchpad's process and transitions it to RESPAWNING,
// then polls the client list to match the new window (spec.md §4.7).
func (m *Manager) spawn(ctx context.Context, sc *Scratch) error {
	sc.mu.Lock()
	sc.state = StateRespawning
	cfg := sc.Config
	sc.mu.Unlock()

	if cfg.Command == "" {
		return fmt.Errorf("scratchpad: %q has no command configured", sc.UID)
	}

	// Spawned detached from ctx: the scratchpad process must outlive any
	// single request/reload that triggered its spawn.
	fields := strings.Fields(cfg.Command)
	cmd := exec.Command(fields[0], fields[1:]...)
	if err := cmd.Start(); err != nil {
		if cfg.ProcessTracking {
			return fmt.Errorf("scratchpad: %q spawn failed: %w", sc.UID, err)
		}
		m.log.Warn().Err(err).Str("uid", sc.UID).Msg("scratchpad: spawn failed, continuing (process_tracking=false)")
	} else {
		sc.mu.Lock()
		sc.cmd = cmd
		sc.pid = cmd.Process.Pid
		sc.mu.Unlock()
		m.mu.Lock()
		m.byPID[cmd.Process.Pid] = sc.UID
		m.mu.Unlock()
		go func() { _ = cmd.Wait() }()
	}

	// Matching runs detached from the caller's ctx: a respawn can legitimately
	// take longer than a single event/command's task timeout to appear.
	go m.pollForMatch(context.Background(), sc)
	return nil
}

// pollForMatch implements spec.md §4.7's growing poll interval (100ms ->
// 500ms) until a client matching sc.Config appears.
func (m *Manager) pollForMatch(ctx context.Context, sc *Scratch) {
	interval := 100 * time.Millisecond
	const maxInterval = 500 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		sc.mu.Lock()
		stillRespawning := sc.state == StateRespawning
		pid := sc.pid
		sc.mu.Unlock()
		if !stillRespawning {
			return
		}

		clients, err := m.back.GetClients(ctx, backend.ClientFilter{})
		if err != nil {
			m.log.Debug().Err(err).Str("uid", sc.UID).Msg("scratchpad: poll get_clients failed")
		} else if client, ok := m.matchOne(sc, clients, pid); ok {
			m.onMatched(ctx, sc, client)
			return
		}

		if interval < maxInterval {
			interval += 100 * time.Millisecond
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

func (m *Manager) matchOne(sc *Scratch, clients []backend.ClientInfo, pid int) (backend.ClientInfo, bool) {
	sc.mu.Lock()
	cfg := sc.Config
	sc.mu.Unlock()
	for _, c := range clients {
		if cfg.ProcessTracking && pid != 0 && c.PID == pid {
			return c, true
		}
		if cfg.Matches(c) {
			return c, true
		}
	}
	return backend.ClientInfo{}, false
}

// onMatched implements "MATCHED -> HIDDEN (initial)": the newly matched
// window is moved onto the scratchpad's special workspace immediately.
func (m *Manager) onMatched(ctx context.Context, sc *Scratch, client backend.ClientInfo) {
	sc.mu.Lock()
	sc.address = client.Address
	sc.state = StateHidden
	sc.initialized = true
	sc.mu.Unlock()

	m.mu.Lock()
	m.byAddress[client.Address] = sc.UID
	m.mu.Unlock()

	_ = m.back.Execute(ctx, fmt.Sprintf("movetoworkspacesilent %s,address:%s", sc.SpecialWorkspace(), client.Address), "dispatch", true)
}

// OnWindowOpened folds a newly seen window into an existing scratchpad's
// extra_addr set when multi=true and the window matches the same rule
// (spec.md §4.7's multi-window tracking), and re-matches any RESPAWNING
// scratchpad directly (avoiding the 100ms poll latency).
func (m *Manager) OnWindowOpened(ctx context.Context, client backend.ClientInfo) {
	for _, sc := range m.All() {
		sc.mu.Lock()
		cfg := sc.Config
		st := sc.state
		primary := sc.address
		sc.mu.Unlock()

		if st == StateRespawning && cfg.Matches(client) {
			m.onMatched(ctx, sc, client)
			continue
		}
		if cfg.Multi && primary != "" && client.Address != primary && cfg.Matches(client) {
			sc.mu.Lock()
			sc.extraAddr[client.Address] = struct{}{}
			sc.mu.Unlock()
			m.mu.Lock()
			m.byAddress[client.Address] = sc.UID
			m.mu.Unlock()
			if sc.Visible() {
				_ = m.back.Execute(ctx, fmt.Sprintf("movetoworkspacesilent %s,address:%s", sc.monitorWorkspace(), client.Address), "dispatch", true)
			} else {
				_ = m.back.Execute(ctx, fmt.Sprintf("movetoworkspacesilent %s,address:%s", sc.SpecialWorkspace(), client.Address), "dispatch", true)
			}
		}
	}
}

func (sc *Scratch) monitorWorkspace() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.spaceID.workspace
}

// OnWindowClosed drops a closed window from tracking. If it was a
// scratchpad's primary window, the scratchpad is reset and, when it is
// process-tracked or has a command, respawned right away; the respawn is
// not deferred to the next show.
func (m *Manager) OnWindowClosed(ctx context.Context, address string) {
	sc, ok := m.ByAddress(address)
	if !ok {
		return
	}
	m.mu.Lock()
	delete(m.byAddress, address)
	m.mu.Unlock()

	sc.mu.Lock()
	isPrimary := sc.address == address
	delete(sc.extraAddr, address)
	delete(sc.extraPositions, address)
	sc.mu.Unlock()

	if isPrimary {
		sc.reset()
		if sc.Config.ProcessTracking || sc.Config.Command != "" {
			_ = m.spawn(ctx, sc)
		}
	}
}

// Toggle shows a hidden scratchpad or hides a visible one.
func (m *Manager) Toggle(ctx context.Context, uid string, activeWorkspace, focusedAddr string) error {
	sc, ok := m.Get(uid)
	if !ok {
		return fmt.Errorf("scratchpad: unknown uid %q", uid)
	}
	if sc.Visible() {
		return m.Hide(ctx, uid)
	}
	return m.Show(ctx, uid, activeWorkspace, focusedAddr)
}

// hideExcluded hides every scratchpad sc.Config.Excludes names (or every
// other configured scratchpad, if Excludes is "*"), per spec.md §4.7's
// show-time exclusion. Each one actually hidden is remembered on sc so Hide
// can re-show it when RestoreExcluded is set.
func (m *Manager) hideExcluded(ctx context.Context, sc *Scratch, cfg Config) {
	if len(cfg.Excludes) == 0 {
		return
	}
	uids := cfg.Excludes
	if len(uids) == 1 && uids[0] == "*" {
		uids = nil
		for _, other := range m.All() {
			if other.UID != sc.UID {
				uids = append(uids, other.UID)
			}
		}
	}
	var hid []string
	for _, eUID := range uids {
		excluded, ok := m.Get(eUID)
		if !ok || !excluded.Visible() {
			continue
		}
		if err := m.Hide(ctx, eUID); err != nil {
			m.log.Warn().Err(err).Str("uid", eUID).Msg("scratchpad: failed to hide excluded scratchpad")
			continue
		}
		hid = append(hid, eUID)
	}
	if cfg.RestoreExcluded && len(hid) > 0 {
		sc.mu.Lock()
		sc.excluded = append(sc.excluded, hid...)
		sc.mu.Unlock()
	}
}

// restoreExcluded re-shows every scratchpad sc auto-hid on its last show
// (spec.md §4.7: "if the scratchpad had excluded other scratchpads on show
// and restore_excluded is set, re-show them").
func (m *Manager) restoreExcluded(ctx context.Context, sc *Scratch, activeWorkspace string) {
	sc.mu.Lock()
	pending := sc.excluded
	sc.excluded = nil
	sc.mu.Unlock()
	for _, eUID := range pending {
		if err := m.Show(ctx, eUID, activeWorkspace, ""); err != nil {
			m.log.Warn().Err(err).Str("uid", eUID).Msg("scratchpad: failed to restore excluded scratchpad")
		}
	}
}

// Show implements spec.md §4.7's show transition.
func (m *Manager) Show(ctx context.Context, uid, activeWorkspace, focusedAddr string) error {
	sc, ok := m.Get(uid)
	if !ok {
		return fmt.Errorf("scratchpad: unknown uid %q", uid)
	}
	if !sc.beginTransition() {
		return nil // a transition is already in flight; drop this one
	}
	defer sc.endTransition()

	sc.mu.Lock()
	addr := sc.address
	cfg := sc.Config
	extras := make([]string, 0, len(sc.extraAddr))
	for a := range sc.extraAddr {
		extras = append(extras, a)
	}
	sc.mu.Unlock()

	if addr == "" {
		return fmt.Errorf("scratchpad: %q has no matched window yet", uid)
	}

	m.hideExcluded(ctx, sc, cfg)

	monitors, err := m.back.GetMonitors(ctx, false)
	if err != nil {
		return fmt.Errorf("scratchpad: get_monitors: %w", err)
	}
	target := ""
	for _, mon := range monitors {
		if mon.Focused {
			target = mon.Name
			break
		}
	}

	cmds := []string{
		fmt.Sprintf("moveworkspacetomonitor %s %s", sc.SpecialWorkspace(), target),
		fmt.Sprintf("movetoworkspace %s,address:%s", activeWorkspace, addr),
	}
	for _, extra := range extras {
		cmds = append(cmds, fmt.Sprintf("movetoworkspace %s,address:%s", activeWorkspace, extra))
	}
	cmds = append(cmds, fmt.Sprintf("focuswindow address:%s", addr))
	if cfg.Pinned {
		cmds = append(cmds, fmt.Sprintf("pin address:%s", addr))
	}
	if err := m.back.ExecuteBatch(ctx, cmds); err != nil {
		return fmt.Errorf("scratchpad: show batch: %w", err)
	}

	sc.mu.Lock()
	sc.visible = true
	sc.state = StateVisible
	sc.monitor = target
	sc.spaceID = spaceIdentifier{workspace: activeWorkspace, monitor: target}
	sc.lastShown = time.Now()
	sc.focusTracker = focusedAddr
	sc.mu.Unlock()
	return nil
}

// Hide implements spec.md §4.7's hide transition.
func (m *Manager) Hide(ctx context.Context, uid string) error {
	sc, ok := m.Get(uid)
	if !ok {
		return fmt.Errorf("scratchpad: unknown uid %q", uid)
	}
	if !sc.beginTransition() {
		return nil
	}
	defer sc.endTransition()

	sc.mu.Lock()
	addr := sc.address
	cfg := sc.Config
	extras := make([]string, 0, len(sc.extraAddr))
	for a := range sc.extraAddr {
		extras = append(extras, a)
	}
	focusBack := sc.focusTracker
	shownWorkspace := sc.spaceID.workspace
	sc.mu.Unlock()

	if addr == "" {
		return fmt.Errorf("scratchpad: %q has no matched window", uid)
	}

	if cfg.HideDelay > 0 {
		time.Sleep(cfg.HideDelay)
	}

	cmds := []string{fmt.Sprintf("movetoworkspacesilent %s,address:%s", sc.SpecialWorkspace(), addr)}
	for _, extra := range extras {
		cmds = append(cmds, fmt.Sprintf("movetoworkspacesilent %s,address:%s", sc.SpecialWorkspace(), extra))
	}
	if err := m.back.ExecuteBatch(ctx, cmds); err != nil {
		return fmt.Errorf("scratchpad: hide batch: %w", err)
	}

	sc.mu.Lock()
	sc.visible = false
	sc.state = StateHidden
	sc.mu.Unlock()

	if focusBack != "" {
		_ = m.back.Execute(ctx, fmt.Sprintf("focuswindow address:%s", focusBack), "dispatch", true)
	}
	if cfg.RestoreExcluded {
		m.restoreExcluded(ctx, sc, shownWorkspace)
	}
	return nil
}

// ScheduleHysteresisHide implements spec.md §4.7's unfocus-hide: schedules
// a hide for every visible scratchpad with unfocus=="hide" whose focus has
// moved elsewhere, unless within the after-show inhibition window.
func (m *Manager) ScheduleHysteresisHide(ctx context.Context, newFocusAddr string) {
	for _, sc := range m.All() {
		if sc.Config.Unfocus != "hide" || !sc.Visible() {
			continue
		}
		sc.mu.Lock()
		owns := sc.address == newFocusAddr
		if !owns {
			if _, ok := sc.extraAddr[newFocusAddr]; ok {
				owns = true
			}
		}
		sinceShow := time.Since(sc.lastShown)
		sc.mu.Unlock()
		if owns {
			m.cancelHide(sc)
			continue
		}
		if sinceShow < afterShowInhibition {
			continue
		}
		m.scheduleHide(ctx, sc)
	}
}

func (m *Manager) scheduleHide(ctx context.Context, sc *Scratch) {
	sc.mu.Lock()
	if sc.hideTimer != nil {
		sc.hideTimer.Stop()
	}
	delay := sc.Config.Hysteresis
	uid := sc.UID
	sc.hideTimer = time.AfterFunc(delay, func() {
		if err := m.Hide(ctx, uid); err != nil {
			m.log.Debug().Err(err).Str("uid", uid).Msg("scratchpad: hysteresis hide failed")
		}
	})
	sc.mu.Unlock()
}

func (m *Manager) cancelHide(sc *Scratch) {
	sc.mu.Lock()
	if sc.hideTimer != nil {
		sc.hideTimer.Stop()
		sc.hideTimer = nil
	}
	sc.mu.Unlock()
}

// OnMonitorRemoved auto-hides any scratchpad last shown on a monitor that
// just disappeared (spec.md §4.7's guarantee).
func (m *Manager) OnMonitorRemoved(ctx context.Context, monitor string) {
	for _, sc := range m.All() {
		if sc.Visible() && sc.Monitor() == monitor {
			_ = m.Hide(ctx, sc.UID)
		}
	}
}

// ReinstallRules re-installs windowrules for every CONFIGURED scratchpad,
// per spec.md §4.7's "compositor config reloaded" guarantee.
func (m *Manager) ReinstallRules(ctx context.Context) {
	for _, sc := range m.All() {
		if sc.State() == StateUnconfigured {
			continue
		}
		for _, rule := range ruleFor(sc) {
			if err := m.back.Execute(ctx, rule, "keyword", true); err != nil {
				m.log.Warn().Err(err).Str("uid", sc.UID).Msg("scratchpad: windowrule reinstall failed")
			}
		}
	}
}

// parseUnit is a small helper for the units engine spec.md §4.7 references
// (percentage or px-suffixed size relative to a monitor dimension).
func parseUnit(value string, reference int) (int, error) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("scratchpad: invalid percentage %q: %w", value, err)
		}
		return int(float64(reference) * pct / 100), nil
	}
	trimmed := strings.TrimSuffix(value, "px")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("scratchpad: invalid size %q: %w", value, err)
	}
	return n, nil
}
