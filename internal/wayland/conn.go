package wayland

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"global-menu/pkg/core"
)

const (
	EnvDisplay    = "WAYLAND_DISPLAY"
	EnvSocket     = "WAYLAND_SOCKET"
	EnvRuntimeDir = "XDG_RUNTIME_DIR"

	DefaultDisplay = "wayland-0"

	displayID ObjectID = 1
)

var (
	ErrNoDisplay = errors.New("wayland: no display available")
	ErrClosed    = errors.New("wayland: connection closed")
)

// Object is a client-side proxy that can receive events.
type Object interface {
	Dispatch(opcode uint16, d *Decoder) error
	Base() *Proxy
}

// Proxy holds the state shared by every protocol object.
type Proxy struct {
	conn    *Conn
	id      ObjectID
	version uint32
}

func (p *Proxy) ID() ObjectID {
	if p == nil {
		return 0
	}
	return p.id
}

func (p *Proxy) Version() uint32 {
	return p.version
}

func (p *Proxy) Conn() *Conn {
	return p.conn
}

// Request sends a request from this object.
func (p *Proxy) Request(opcode uint16, e *Encoder) error {
	var args []byte
	if e != nil {
		args = e.Bytes()
	}
	return p.conn.send(Message{Sender: p.id, Opcode: opcode, Args: args})
}

// Conn is a client connection to a Wayland compositor.
//
// Reading raw messages (ReadMessage) may happen on its own goroutine.
// Everything else, including Dispatch and sending requests, must stay on a
// single goroutine.
type Conn struct {
	c   net.Conn
	r   *bufio.Reader
	log core.Logger

	objects map[ObjectID]Object
	// zombies are client ids whose proxy was destroyed while the compositor
	// may still have events in flight for them. They wait for delete_id.
	zombies map[ObjectID]struct{}
	free    []ObjectID
	nextID  ObjectID

	display *Display
	err     error
}

// Connect opens the display socket following the libwayland lookup rules:
// WAYLAND_SOCKET, then name (or WAYLAND_DISPLAY, or wayland-0) relative to
// XDG_RUNTIME_DIR unless it is absolute.
func Connect(name string, log core.Logger) (*Conn, error) {
	if log == nil {
		log = core.Nop()
	}
	if fdStr := os.Getenv(EnvSocket); fdStr != "" {
		fd, err := strconv.Atoi(fdStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s %q", ErrNoDisplay, EnvSocket, fdStr)
		}
		os.Unsetenv(EnvSocket)
		f := os.NewFile(uintptr(fd), "wayland-socket")
		c, err := net.FileConn(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDisplay, err)
		}
		log.Debug("Using inherited Wayland socket", "fd", fd)
		return NewConn(c, log), nil
	}

	path, err := SocketPath(name)
	if err != nil {
		return nil, err
	}

	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDisplay, err)
	}
	log.Debug("Connected to Wayland display", "path", path)
	return NewConn(c, log), nil
}

// SocketPath resolves a display name into a socket path.
func SocketPath(name string) (string, error) {
	if name == "" {
		name = os.Getenv(EnvDisplay)
	}
	if name == "" {
		name = DefaultDisplay
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	runtimeDir := os.Getenv(EnvRuntimeDir)
	if runtimeDir == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoDisplay, EnvRuntimeDir)
	}
	return filepath.Join(runtimeDir, name), nil
}

// NewConn wraps an already established stream connection.
func NewConn(c net.Conn, log core.Logger) *Conn {
	if log == nil {
		log = core.Nop()
	}
	conn := &Conn{
		c:       c,
		r:       bufio.NewReader(c),
		log:     log,
		objects: make(map[ObjectID]Object),
		zombies: make(map[ObjectID]struct{}),
		nextID:  displayID + 1,
	}
	conn.display = &Display{}
	conn.display.conn = conn
	conn.display.id = displayID
	conn.display.version = 1
	conn.objects[displayID] = conn.display
	return conn
}

func (c *Conn) Display() *Display {
	return c.display
}

// Err returns the fatal error recorded on the connection, if any.
func (c *Conn) Err() error {
	return c.err
}

func (c *Conn) Close() error {
	if c.err == nil {
		c.err = ErrClosed
	}
	return c.c.Close()
}

func (c *Conn) send(m Message) error {
	if c.err != nil {
		return c.err
	}
	return WriteMessage(c.c, m)
}

func (c *Conn) allocID() ObjectID {
	if n := len(c.free); n > 0 {
		id := c.free[n-1]
		c.free = c.free[:n-1]
		return id
	}
	id := c.nextID
	c.nextID++
	return id
}

// NewObject registers obj under a fresh client-allocated id.
func (c *Conn) NewObject(obj Object, version uint32) ObjectID {
	p := obj.Base()
	p.conn = c
	p.id = c.allocID()
	p.version = version
	c.objects[p.id] = obj
	return p.id
}

// RegisterObject registers obj under an id chosen by the compositor.
func (c *Conn) RegisterObject(id ObjectID, obj Object, version uint32) {
	p := obj.Base()
	p.conn = c
	p.id = id
	p.version = version
	delete(c.zombies, id)
	if old, ok := c.objects[id]; ok {
		c.log.Warn("Compositor reused a live object id", "id", id, "old", fmt.Sprintf("%T", old))
	}
	c.objects[id] = obj
}

// Retire forgets the proxy behind id. Events still in flight for it are
// dropped. Client ids stay reserved until the compositor confirms deletion;
// server ids never get a delete_id and are released immediately.
func (c *Conn) Retire(id ObjectID) {
	if _, ok := c.objects[id]; !ok {
		return
	}
	delete(c.objects, id)
	if !id.IsServer() {
		c.zombies[id] = struct{}{}
	}
}

// Lookup returns the live proxy registered under id.
func (c *Conn) Lookup(id ObjectID) (Object, bool) {
	obj, ok := c.objects[id]
	return obj, ok
}

func (c *Conn) deleteID(id ObjectID) {
	delete(c.zombies, id)
	if _, live := c.objects[id]; live {
		// the proxy was never retired; the compositor is authoritative
		delete(c.objects, id)
	}
	if !id.IsServer() {
		c.free = append(c.free, id)
	}
}

// ReadMessage blocks until one full message has been read from the socket.
func (c *Conn) ReadMessage() (Message, error) {
	m, err := ReadMessage(c.r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return Message{}, ErrClosed
		}
		return Message{}, err
	}
	return m, nil
}

// Dispatch routes one message to the proxy it is addressed to.
func (c *Conn) Dispatch(m Message) error {
	if c.err != nil {
		return c.err
	}
	obj, ok := c.objects[m.Sender]
	if !ok {
		// late events for retired server objects are expected
		if _, zombie := c.zombies[m.Sender]; zombie || m.Sender.IsServer() {
			return nil
		}
		c.log.Debug("Dropping event for unknown object", "id", m.Sender, "opcode", m.Opcode)
		return nil
	}
	d := m.Decoder()
	if err := obj.Dispatch(m.Opcode, d); err != nil {
		c.err = err
		return err
	}
	if err := d.Err(); err != nil {
		c.err = fmt.Errorf("decode %T event %d: %w", obj, m.Opcode, err)
		return c.err
	}
	return nil
}

// DispatchOne reads and dispatches a single message.
func (c *Conn) DispatchOne() error {
	m, err := c.ReadMessage()
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return err
	}
	return c.Dispatch(m)
}

// Roundtrip blocks until the compositor has processed every request sent so
// far, dispatching all events that arrive in the meantime.
func (c *Conn) Roundtrip() error {
	cb, err := c.display.Sync()
	if err != nil {
		return err
	}
	for !cb.Done() {
		if err := c.DispatchOne(); err != nil {
			return err
		}
	}
	return nil
}
