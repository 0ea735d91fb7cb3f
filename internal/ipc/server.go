package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"global-menu/internal/menu"
	"global-menu/internal/models"
	"global-menu/internal/wm"
	"global-menu/pkg/core"
)

const (
	CommandActive  = "active"
	CommandList    = "list"
	CommandStatus  = "status"
	CommandHistory = "history"

	StatusSuccess = "success"
	StatusError   = "error"

	connTimeout = 5 * time.Second
)

type Request struct {
	Command string `json:"command"`
	// Limit bounds the history command; zero selects the server default.
	Limit int `json:"limit,omitempty"`
}

type Response struct {
	Status    string              `json:"status"`
	Message   string              `json:"message"`
	Active    *wm.Properties      `json:"active,omitempty"`
	Menu      *menu.Menu          `json:"menu,omitempty"`
	Toplevels []wm.Properties     `json:"toplevels,omitempty"`
	State     *State              `json:"state,omitempty"`
	History   []models.Activation `json:"history,omitempty"`
}

// State summarises the tracker for the status command.
type State struct {
	Tracked int    `json:"tracked"`
	Stopped bool   `json:"stopped"`
	SelfID  string `json:"self_id,omitempty"`
	Display string `json:"display,omitempty"`
}

// Handler answers one request. Implementations decide which goroutine the
// work runs on.
type Handler interface {
	Handle(req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) Response

func (f HandlerFunc) Handle(req Request) Response {
	return f(req)
}

// Errorf builds an error response.
func Errorf(format string, args ...interface{}) Response {
	return Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Server accepts JSON requests on a unix socket.
type Server struct {
	path     string
	handler  Handler
	log      core.Logger
	listener net.Listener

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Listen creates the socket at path, replacing a stale one.
func Listen(path string, handler Handler, log core.Logger) (*Server, error) {
	if log == nil {
		log = core.Nop()
	}

	// Remove the socket file if it already exists
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error("Failed to remove existing socket file", err, "path", path)
		return nil, err
	}

	// Create the directory for the socket file
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error("Failed to create socket directory", err, "path", dir)
		return nil, err
	}

	// Listen on the Unix domain socket
	listener, err := net.Listen("unix", path)
	if err != nil {
		log.Error("Failed to start socket server", err, "path", path)
		return nil, err
	}

	log.Info("Socket server started", "path", path)
	return &Server{
		path:     path,
		handler:  handler,
		log:      log,
		listener: listener,
	}, nil
}

// Serve accepts connections until Close is called.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.log.Error("Failed to accept connection", err)
			continue
		}

		s.log.Debug("New connection accepted", "remote_addr", conn.RemoteAddr())

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.listener.Close()
		if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	})
	return err
}

func (s *Server) Path() string {
	return s.path
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(connTimeout)); err != nil {
		s.log.Warn("Failed to set connection deadline", "error", err.Error())
	}

	var req Request
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&req); err != nil {
		s.log.Error("Failed to decode request", err)
		return
	}

	s.log.Info("Received request", "command", req.Command)

	var resp Response
	switch req.Command {
	case CommandActive, CommandList, CommandStatus, CommandHistory:
		resp = s.handler.Handle(req)
	default:
		s.log.Error("Unknown command received", fmt.Errorf("command: %s", req.Command))
		resp = Response{Status: StatusError, Message: "Unknown command"}
	}

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(resp); err != nil {
		s.log.Error("Failed to encode response", err)
	} else {
		s.log.Debug("Response sent successfully", "status", resp.Status)
	}
}
