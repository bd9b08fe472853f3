// Package control implements the Unix-socket control server of spec.md
// §4.1/§6: one request per connection, a single line in, a structured
// response out.
//
// Grounded on the wire protocol exercised by
// other_examples/203cb7ca_hyprland-community-pyprland__client-pypr-client.go.go
// (dial a Unix socket under XDG_RUNTIME_DIR, write one line, no framing)
// and the teacher's pkg/daemonize pidfile-cleanup style (os.Stat/os.Remove
// around a well-known path) for socket-file lifecycle.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// SocketName is the control-socket file name inside the IPC directory
// (spec.md §6: "${IPC_FOLDER}/.pyprland.sock").
const SocketName = ".pyprland.sock"

// SocketPath returns the control-socket path for a given IPC folder.
func SocketPath(ipcFolder string) string {
	return filepath.Join(ipcFolder, SocketName)
}

// Handler dispatches one parsed command to its owning plugin and returns
// the response body (or an error). internal/dispatcher.DispatchCommand
// satisfies this signature.
type Handler func(ctx context.Context, name string, args []string) (string, error)

// Server listens on the control socket and serves one request per
// connection (spec.md §6).
type Server struct {
	log      zerolog.Logger
	listener net.Listener
	path     string
	handler  Handler
}

// Listen creates the Unix socket at SocketPath(ipcFolder), removing any
// stale socket file left by an unclean previous shutdown first.
func Listen(log zerolog.Logger, ipcFolder string, handler Handler) (*Server, error) {
	if err := os.MkdirAll(ipcFolder, 0o755); err != nil {
		return nil, fmt.Errorf("control: create ipc folder: %w", err)
	}
	path := SocketPath(ipcFolder)

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("control: remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("control: listen %s: %w", path, err)
	}

	return &Server{log: log, listener: ln, path: path, handler: handler}, nil
}

// Serve accepts connections until ctx is cancelled or the listener closes.
// Each connection's handler runs in its own goroutine (spec.md §5: "each
// connection's handler runs concurrently"); commands within a plugin still
// serialize on that plugin's dispatcher queue.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && !netErr.Temporary() {
				return fmt.Errorf("control: accept: %w", err)
			}
			s.log.Warn().Err(err).Msg("control: transient accept error")
			continue
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	body, err := s.handler(ctx, name, args)
	response := formatResponse(body, err)
	if _, werr := conn.Write([]byte(response)); werr != nil {
		s.log.Warn().Err(werr).Msg("control: write response failed")
	}
}

func formatResponse(body string, err error) string {
	if err != nil {
		return fmt.Sprintf("ERROR: %s\n", err.Error())
	}
	if body == "" {
		return "OK\n"
	}
	return "OK\n" + body
}

// Close removes the socket file and closes the listener, per spec.md
// §4.1's shutdown sequence ("close sockets, remove the socket file").
func (s *Server) Close() error {
	err := s.listener.Close()
	if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
		if err == nil {
			err = rmErr
		}
	}
	return err
}
