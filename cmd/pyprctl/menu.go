package main

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// menuItem is one selectable row, parsed from the daemon's "help" reply
// (one "<name>  <short> [<plugin>]" line per internal/commands.Registry.Help).
type menuItem struct {
	name  string
	short string
}

var (
	menuTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	menuCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	menuSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	menuDimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	menuErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type menuState int

const (
	menuBrowsing menuState = iota
	menuRunning
	menuDone
)

type commandResultMsg struct {
	reply string
	err   error
}

type menuModel struct {
	socketPath string
	items      []menuItem
	cursor     int
	state      menuState
	spinner    spinner.Model
	result     string
	resultErr  error
}

func newMenuModel(socketPath string, items []menuItem) menuModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = menuCursorStyle
	return menuModel{socketPath: socketPath, items: items, spinner: s}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == menuDone {
			return m, tea.Quit
		}
		if m.state != menuBrowsing {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.items) == 0 {
				return m, nil
			}
			m.state = menuRunning
			name := m.items[m.cursor].name
			return m, tea.Batch(m.spinner.Tick, dispatchCmd(m.socketPath, name))
		}
	case commandResultMsg:
		m.state = menuDone
		m.result = msg.reply
		m.resultErr = msg.err
		return m, nil
	case spinner.TickMsg:
		if m.state == menuRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	var b strings.Builder
	b.WriteString(menuTitleStyle.Render("pyprctl menu"))
	b.WriteString("\n\n")

	switch m.state {
	case menuBrowsing:
		for i, item := range m.items {
			cursor := "  "
			line := item.name
			if item.short != "" {
				line += "  " + menuDimStyle.Render(item.short)
			}
			if i == m.cursor {
				cursor = menuCursorStyle.Render("> ")
				line = menuSelectedStyle.Render(item.name)
				if item.short != "" {
					line += "  " + menuDimStyle.Render(item.short)
				}
			}
			b.WriteString(cursor + line + "\n")
		}
		b.WriteString("\n" + menuDimStyle.Render("↑/↓ select · enter run · q quit"))
	case menuRunning:
		fmt.Fprintf(&b, "%s running %s...", m.spinner.View(), m.items[m.cursor].name)
	case menuDone:
		if m.resultErr != nil {
			b.WriteString(menuErrorStyle.Render(m.resultErr.Error()))
		} else {
			b.WriteString(m.result)
		}
		b.WriteString("\n\n" + menuDimStyle.Render("press any key to exit"))
	}
	return b.String()
}

// dispatchCmd sends name with no arguments to the daemon and wraps the
// reply as a tea.Msg, reusing the same one-line wire protocol as the
// plain socket path in main.go.
func dispatchCmd(socketPath, name string) tea.Cmd {
	return func() tea.Msg {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return commandResultMsg{err: fmt.Errorf("connect: %w", err)}
		}
		defer conn.Close()
		if _, err := conn.Write([]byte(name + "\n")); err != nil {
			return commandResultMsg{err: fmt.Errorf("write: %w", err)}
		}
		if c, ok := conn.(interface{ CloseWrite() error }); ok {
			c.CloseWrite()
		}
		reply, err := readAll(conn)
		if err != nil {
			return commandResultMsg{err: fmt.Errorf("read: %w", err)}
		}
		if strings.HasPrefix(reply, "ERROR: ") {
			return commandResultMsg{err: fmt.Errorf("%s", strings.TrimPrefix(reply, "ERROR: "))}
		}
		return commandResultMsg{reply: strings.TrimPrefix(reply, "OK\n")}
	}
}

// parseHelp turns internal/commands.Registry.Help's rendered body back into
// menuItems: one "<name>  <short> [<plugin>]" line per command.
func parseHelp(help string) []menuItem {
	var items []menuItem
	for _, line := range strings.Split(help, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name := fields[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, name))
		if i := strings.LastIndex(rest, "["); i >= 0 && strings.HasSuffix(rest, "]") {
			rest = strings.TrimSpace(rest[:i])
		}
		items = append(items, menuItem{name: name, short: rest})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].name < items[j].name })
	return items
}

// runMenu fetches the daemon's command listing and drives an interactive
// bubbletea picker over it (spec.md §6's "menu" command, client-rendered:
// the daemon only knows single-line request/response, so browsing and
// selection both happen here).
func runMenu() int {
	socketPath, err := resolveSocketPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: menu: %v\n", err)
		return exitEnvironmentError
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: menu: connect: %v\n", err)
		return exitConnectionError
	}
	if _, err := conn.Write([]byte("help\n")); err != nil {
		conn.Close()
		fmt.Fprintf(os.Stderr, "pyprctl: menu: write: %v\n", err)
		return exitConnectionError
	}
	if c, ok := conn.(interface{ CloseWrite() error }); ok {
		c.CloseWrite()
	}
	reply, err := readAll(conn)
	conn.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: menu: read: %v\n", err)
		return exitConnectionError
	}
	reply = strings.TrimPrefix(reply, "OK\n")

	items := parseHelp(reply)
	program := tea.NewProgram(newMenuModel(socketPath, items))
	finalModel, err := program.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pyprctl: menu: %v\n", err)
		return exitConnectionError
	}
	if m, ok := finalModel.(menuModel); ok && m.resultErr != nil {
		return exitCommandError
	}
	return exitSuccess
}
