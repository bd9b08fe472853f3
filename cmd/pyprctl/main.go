// Command pyprctl is the control-socket client: it sends one line to the
// daemon's Unix socket and prints the response (spec.md §6).
//
// Grounded on other_examples/203cb7ca_hyprland-community-pyprland__client-
// pypr-client.go.go's socket-path resolution and one-shot write, rewired
// through cobra the way the teacher's cmd/test-screensaver/main.go builds
// its CLI surface, and on the teacher's cmd/client/main.go for a plain-text
// "edit" built-in handled entirely client-side.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/pyprlandd/internal/control"
)

// Exit codes per spec.md §6.
const (
	exitSuccess         = 0
	exitUsageError      = 1
	exitEnvironmentError = 2
	exitConnectionError = 3
	exitCommandError    = 4
)

func main() {
	root := &cobra.Command{
		Use:                   "pyprctl <command> [args...]",
		Short:                 "Send a command to the pyprlandd control socket.",
		DisableFlagParsing:    true,
		Args:                  cobra.ArbitraryArgs,
		SilenceUsage:          true,
		SilenceErrors:         true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args)
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsageError)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pyprctl <command> [args...]")
		os.Exit(exitUsageError)
	}

	switch args[0] {
	case "help", "--help", "-h":
		printHelp()
		os.Exit(exitSuccess)
	case "edit":
		os.Exit(runEdit())
	case "menu":
		os.Exit(runMenu())
	}

	socketPath, err := resolveSocketPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: %v\n", err)
		os.Exit(exitEnvironmentError)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: connect %s: %v\n", socketPath, err)
		os.Exit(exitConnectionError)
	}
	defer conn.Close()

	message := strings.Join(args, " ") + "\n"
	if _, err := conn.Write([]byte(message)); err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: write: %v\n", err)
		os.Exit(exitConnectionError)
	}
	if c, ok := conn.(interface{ CloseWrite() error }); ok {
		c.CloseWrite()
	}

	reply, err := readAll(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: read: %v\n", err)
		os.Exit(exitConnectionError)
	}

	if strings.HasPrefix(reply, "ERROR: ") {
		fmt.Fprint(os.Stderr, strings.TrimPrefix(reply, "ERROR: "))
		os.Exit(exitCommandError)
	}
	if strings.HasPrefix(reply, "OK\n") {
		reply = strings.TrimPrefix(reply, "OK\n")
	}
	fmt.Print(reply)
	os.Exit(exitSuccess)
	return nil
}

func readAll(conn net.Conn) (string, error) {
	var b strings.Builder
	r := bufio.NewReader(conn)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			return b.String(), nil
		}
	}
}

// resolveSocketPath follows spec.md §6's IPC folder rule: Hyprland's own
// instance directory when present, else the pyprlandd-owned fallback
// directory pyprlandd itself creates under XDG_RUNTIME_DIR.
func resolveSocketPath() (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	if sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE"); sig != "" {
		return control.SocketPath(filepath.Join(runtimeDir, "hypr", sig)), nil
	}
	return control.SocketPath(filepath.Join(runtimeDir, "pyprlandd")), nil
}

// runEdit opens the user's config file in $EDITOR/$VISUAL, per spec.md §6's
// "EDITOR/VISUAL (for edit)" — this command never touches the socket.
func runEdit() int {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		fmt.Fprintln(os.Stderr, "pyprctl: edit: neither EDITOR nor VISUAL is set")
		return exitEnvironmentError
	}

	configPath, err := defaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: edit: %v\n", err)
		return exitEnvironmentError
	}

	cmd := exec.Command(editor, configPath)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: edit: %v\n", err)
		return exitCommandError
	}
	return exitSuccess
}

func defaultConfigPath() (string, error) {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "pypr", "config.toml"), nil
}

func printHelp() {
	fmt.Println(`Syntax: pyprctl <command> [args...]

Available commands (served by the daemon unless noted):
  version              Show the daemon version.
  dumpjson              Dump the configuration in JSON format.
  help                  Show the daemon's command listing.
  reload                Reload the configuration.
  compgen [prefix]      List matching command names.
  doc <command>         Show full documentation for a command.
  exit                  Exit the daemon.
  edit                  Edit the configuration file. [client-only]
  menu                  Browse and run commands interactively. [client-only]

Plugin commands depend on the daemon's loaded plugin list; run
"pyprctl help" once the daemon is running for the full set.`)
}
