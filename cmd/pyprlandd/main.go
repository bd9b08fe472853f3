// Command pyprlandd is the daemon entry point: it detects the compositor
// backend, loads configuration and plugins, and serves the control socket
// until shut down (spec.md §4.1's lifecycle).
//
// Grounded on the teacher's cmd/daemon/main.go: flag-parsed startup,
// signal.Notify-driven shutdown, and an optional re-exec through
// pkg/daemonize for background mode, generalized from one screensaver
// daemon's timer/idle select loop to a plugin host wired to a dispatcher,
// an event reader, and a control server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nomadcxx/pyprlandd/internal/backend"
	"github.com/Nomadcxx/pyprlandd/internal/commands"
	"github.com/Nomadcxx/pyprlandd/internal/control"
	"github.com/Nomadcxx/pyprlandd/internal/dispatcher"
	"github.com/Nomadcxx/pyprlandd/internal/eventreader"
	"github.com/Nomadcxx/pyprlandd/internal/pluginhost"
	"github.com/Nomadcxx/pyprlandd/internal/pyprconf"
	"github.com/Nomadcxx/pyprlandd/internal/pyprerrors"
	"github.com/Nomadcxx/pyprlandd/internal/pyprlog"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/core"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/dpms"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/expose"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/lostwindows"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/magnify"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/monitors"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/shiftmonitors"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/systemnotifier"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/wallpapers"
	"github.com/Nomadcxx/pyprlandd/internal/pyprplugins/wsfollowfocus"
	"github.com/Nomadcxx/pyprlandd/internal/scratchpad"
	"github.com/Nomadcxx/pyprlandd/internal/state"
	"github.com/Nomadcxx/pyprlandd/pkg/daemonize"
)

const version = "0.1.0"

func main() {
	var (
		runAsDaemon = flag.Bool("daemon", false, "run in the background, detached from the terminal")
		configPath  = flag.String("config", "", "path to a config file or directory (default: search XDG canonical paths)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		logFile     = flag.String("log-file", "", "write logs to this file instead of stderr")
		stop        = flag.Bool("stop", false, "stop a running daemonized instance")
	)
	flag.Parse()

	if *stop {
		d := daemonize.NewDaemon("pyprlandd")
		if err := d.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "pyprlandd: stop: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *runAsDaemon {
		d := daemonize.NewDaemon("pyprlandd")
		if err := d.Daemonize(); err != nil {
			fmt.Fprintf(os.Stderr, "pyprlandd: daemonize: %v\n", err)
			os.Exit(1)
		}
		if *logFile == "" {
			if home, err := os.UserHomeDir(); err == nil {
				*logFile = filepath.Join(home, ".local", "share", "pyprlandd", "daemon.log")
			}
		}
	}

	if *logFile != "" {
		if err := os.MkdirAll(filepath.Dir(*logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "pyprlandd: create log dir: %v\n", err)
			os.Exit(1)
		}
	}

	log, err := pyprlog.New(pyprlog.Options{Debug: *debug, LogFile: *logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprlandd: logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(log, *configPath); err != nil {
		log.Error().Err(err).Msg("pyprlandd: fatal")
		os.Exit(1)
	}
}

func run(log zerolog.Logger, configPath string) error {
	back, err := backend.Detect()
	if err != nil {
		return fmt.Errorf("detect backend: %w", err)
	}
	log.Info().Str("backend", back.Name()).Msg("backend detected")

	doc, err := pyprconf.Load(configPath)
	if err != nil {
		if pyprerrors.Fatal(err) {
			return fmt.Errorf("load config: %w", err)
		}
		log.Warn().Err(err).Msg("config load error; continuing with an empty document")
		doc = &pyprconf.Document{Sections: map[string]map[string]any{
			"pyprland": {"plugins": []any{}},
		}}
	}

	env := environmentFor(back.Name())
	shared := state.New(env)

	ipcFolder, err := ipcFolderFor(env)
	if err != nil {
		return fmt.Errorf("resolve ipc folder: %w", err)
	}

	strict := os.Getenv("PYPRLAND_STRICT_ERRORS") != ""

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var host *pluginhost.Host
	var disp *dispatcher.Dispatcher
	var registry *commands.Registry

	deps := core.Deps{
		Version: version,
		Reload: func(ctx context.Context) error {
			newDoc, err := pyprconf.Load(configPath)
			if err != nil {
				return err
			}
			doc = newDoc
			if err := host.Reload(ctx, doc, env); err != nil {
				return err
			}
			registry = commands.Build(host.Loaded())
			startAllNonCore(rootCtx, disp, host)
			return nil
		},
		Shutdown: func() { cancel() },
		ConfigJSON: func() ([]byte, error) {
			return json.Marshal(doc.Sections)
		},
	}
	deps.Registry = func() core.Registry { return registry }

	host = pluginhost.NewHost(log, shared, back, pluginRegistry(deps), nil)
	disp = dispatcher.New(log, host, shared, back, strict)

	if err := host.LoadAll(rootCtx, doc, env); err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}
	registry = commands.Build(host.Loaded())

	startAllNonCore(rootCtx, disp, host)

	reader := eventreader.New(log, back, time.Second, 5)
	go reader.Run(rootCtx, func(handler, payload string) {
		disp.DispatchEvent(rootCtx, handler, payload)
	})

	srv, err := control.Listen(log, ipcFolder, disp.DispatchCommand)
	if err != nil {
		return fmt.Errorf("listen control socket: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(rootCtx) }()

	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("control server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	host.ExitAll(shutdownCtx)
	if err := srv.Close(); err != nil {
		log.Warn().Err(err).Msg("control server close error")
	}
	return nil
}

func startAllNonCore(ctx context.Context, disp *dispatcher.Dispatcher, host *pluginhost.Host) {
	for name, p := range host.Loaded() {
		disp.StartPlugin(ctx, name, p)
	}
}

// environmentFor maps a detected backend's name to the state.Environment it
// implies, for plugins whose Environments() restricts applicability.
func environmentFor(backendName string) state.Environment {
	switch backendName {
	case "hyprland":
		return state.EnvHyprland
	case "niri":
		return state.EnvNiri
	case "xorg":
		return state.EnvXorg
	default:
		return state.EnvWayland
	}
}

// ipcFolderFor resolves the control socket's parent directory per spec.md
// §6: Hyprland's own IPC directory when present, else a pyprlandd-owned
// directory under XDG_RUNTIME_DIR.
func ipcFolderFor(env state.Environment) (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	if env == state.EnvHyprland {
		if sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE"); sig != "" {
			return filepath.Join(runtimeDir, "hypr", sig), nil
		}
	}
	return filepath.Join(runtimeDir, "pyprlandd"), nil
}

// pluginRegistry lists every plugin the daemon knows how to construct,
// keyed by the config-file name used in pyprland.plugins (spec.md §4.6),
// plus the implicit core plugin under pluginhost.CorePluginName.
func pluginRegistry(deps core.Deps) map[string]pluginhost.Factory {
	return map[string]pluginhost.Factory{
		pluginhost.CorePluginName: func() pluginhost.Plugin { return core.New(deps) },
		magnify.PluginName:        func() pluginhost.Plugin { return magnify.New() },
		shiftmonitors.PluginName: func() pluginhost.Plugin { return shiftmonitors.New() },
		dpms.PluginName:          func() pluginhost.Plugin { return dpms.New() },
		expose.PluginName:        func() pluginhost.Plugin { return expose.New() },
		lostwindows.PluginName:   func() pluginhost.Plugin { return lostwindows.New() },
		wsfollowfocus.PluginName: func() pluginhost.Plugin { return wsfollowfocus.New() },
		monitors.PluginName:      func() pluginhost.Plugin { return monitors.New() },
		wallpapers.PluginName:    func() pluginhost.Plugin { return wallpapers.New() },
		scratchpad.PluginName:    func() pluginhost.Plugin { return scratchpad.New() },
		systemnotifier.PluginName: func() pluginhost.Plugin { return systemnotifier.New() },
	}
}
