// Package wltest provides a scripted in-process compositor for tests.
package wltest

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"global-menu/internal/wayland"
)

// Binding records one wl_registry.bind request.
type Binding struct {
	Name      uint32
	Interface string
	Version   uint32
	ID        wayland.ObjectID
}

// Server is a minimal compositor speaking the core wl_display/wl_registry
// requests. Everything else is recorded and handed to OnRequest.
type Server struct {
	Path string

	// OnBind runs on the server goroutine for every bind request.
	OnBind func(s *Server, b Binding)
	// OnRequest runs on the server goroutine for every request that is not
	// handled by the server itself.
	OnRequest func(s *Server, m wayland.Message)

	t       testing.TB
	ln      net.Listener
	globals []wayland.Global

	mu       sync.Mutex
	conn     net.Conn
	registry wayland.ObjectID
	bindings []Binding
	requests []wayland.Message
	serial   uint32
	nextID   wayland.ObjectID
	accepted chan struct{}
	done     chan struct{}
}

// NewServer listens on a socket in a temporary directory. Call Start after
// configuring the hooks.
func NewServer(t testing.TB, globals ...wayland.Global) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wayland-test")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{
		Path:     path,
		t:        t,
		ln:       ln,
		globals:  globals,
		nextID:   0xff000000,
		accepted: make(chan struct{}),
		done:     make(chan struct{}),
	}
	t.Cleanup(s.Close)
	return s
}

// Start accepts a single client in the background.
func (s *Server) Start() {
	go s.serve()
}

// Dial starts the server and returns a client connection to it once the
// server has accepted it, so Send may be called right away.
func (s *Server) Dial() *wayland.Conn {
	s.t.Helper()
	s.Start()
	c, err := net.Dial("unix", s.Path)
	if err != nil {
		s.t.Fatalf("dial: %v", err)
	}
	select {
	case <-s.accepted:
	case <-s.done:
		c.Close()
		s.t.Fatalf("server stopped before accepting the client")
	case <-time.After(5 * time.Second):
		c.Close()
		s.t.Fatalf("server did not accept the client")
	}
	conn := wayland.NewConn(c, nil)
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
}

// NewServerID allocates an id from the compositor range.
func (s *Server) NewServerID() wayland.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// Send writes an event to the client.
func (s *Server) Send(sender wayland.ObjectID, opcode uint16, e *wayland.Encoder) {
	var args []byte
	if e != nil {
		args = e.Bytes()
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.t.Errorf("send before client connected")
		return
	}
	if err := wayland.WriteMessage(conn, wayland.Message{Sender: sender, Opcode: opcode, Args: args}); err != nil {
		s.t.Errorf("send event: %v", err)
	}
}

// Bindings returns the bind requests seen so far.
func (s *Server) Bindings() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Binding(nil), s.bindings...)
}

// Requests returns the non-core requests seen so far.
func (s *Server) Requests() []wayland.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wayland.Message(nil), s.requests...)
}

// Done is closed when the client disconnects.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) serve() {
	defer close(s.done)

	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	close(s.accepted)

	for {
		m, err := wayland.ReadMessage(conn)
		if err != nil {
			return
		}
		s.handle(m)
	}
}

func (s *Server) handle(m wayland.Message) {
	d := m.Decoder()
	switch {
	case m.Sender == 1 && m.Opcode == 0: // sync
		id := d.NewID()
		s.mu.Lock()
		s.serial++
		serial := s.serial
		s.mu.Unlock()
		s.Send(id, 0, new(wayland.Encoder).Uint(serial))
		s.Send(1, 1, new(wayland.Encoder).Uint(uint32(id)))
	case m.Sender == 1 && m.Opcode == 1: // get_registry
		id := d.NewID()
		s.mu.Lock()
		s.registry = id
		s.mu.Unlock()
		for _, g := range s.globals {
			s.Send(id, 0, new(wayland.Encoder).Uint(g.Name).String(g.Interface).Uint(g.Version))
		}
	case m.Sender != 0 && m.Sender == s.registryID() && m.Opcode == 0: // bind
		b := Binding{Name: d.Uint()}
		b.Interface, _ = d.String()
		b.Version = d.Uint()
		b.ID = d.NewID()
		s.mu.Lock()
		s.bindings = append(s.bindings, b)
		s.mu.Unlock()
		if s.OnBind != nil {
			s.OnBind(s, b)
		}
	default:
		s.mu.Lock()
		s.requests = append(s.requests, m)
		s.mu.Unlock()
		if s.OnRequest != nil {
			s.OnRequest(s, m)
		}
	}
}

func (s *Server) registryID() wayland.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}
