package wm

import (
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/go-multierror"

	"global-menu/internal/wayland"
	"global-menu/internal/wayland/wlr"
	"global-menu/pkg/core"
)

// ToplevelManager tracks the toplevels reported by the compositor and the
// one that is currently active.
type ToplevelManager struct {
	log      core.Logger
	conn     *wayland.Conn
	ownsConn bool
	registry *wayland.Registry
	proxy    managerHandle
	// managerName is the registry name the proxy was bound from.
	managerName uint32

	toplevels map[wayland.ObjectID]*toplevel
	// active is a weak reference into toplevels; 0 means none.
	active wayland.ObjectID
	// activeSettled stands in for the active record's initialized flag
	// while no record is active.
	activeSettled bool
	callback      Callback
	selfID        string

	// settled is cleared by every global announced or removed during the
	// handshake.
	settled  bool
	tracking bool
	finished bool
}

func newManager(log core.Logger) *ToplevelManager {
	if log == nil {
		log = core.Nop()
	}
	return &ToplevelManager{
		log:       log,
		toplevels: make(map[wayland.ObjectID]*toplevel),
		tracking:  true,
	}
}

// Create connects to the Wayland display and starts tracking toplevels.
// An empty display name follows the usual WAYLAND_DISPLAY lookup.
func Create(display string, log core.Logger) (*ToplevelManager, error) {
	if log == nil {
		log = core.Nop()
	}
	log.Info("Session type detected", "session", os.Getenv("XDG_SESSION_TYPE"))

	conn, err := wayland.Connect(display, log)
	if err != nil {
		log.Error("Cannot connect to Wayland display", err, "display", display)
		return nil, fmt.Errorf("%w: %w", ErrNoDisplay, err)
	}

	m, err := New(conn, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	m.ownsConn = true
	return m, nil
}

// New binds the foreign toplevel manager on an existing connection and
// blocks until the initial state has been received.
func New(conn *wayland.Conn, log core.Logger) (*ToplevelManager, error) {
	m := newManager(log)
	m.conn = conn

	if err := m.bind(); err != nil {
		return nil, err
	}

	m.log.Info("Toplevel manager initialized", "toplevels", len(m.toplevels))
	return m, nil
}

// Conn returns the underlying connection, or nil for managers not built on one.
func (m *ToplevelManager) Conn() *wayland.Conn {
	return m.conn
}

// ActiveApp returns the properties of the active toplevel. ok is false if no
// toplevel has been resolved active yet or the active one has closed.
func (m *ToplevelManager) ActiveApp() (props Properties, ok bool) {
	t, ok := m.toplevels[m.active]
	if !ok {
		return Properties{}, false
	}
	return t.props, true
}

// Toplevels returns the properties of every tracked toplevel ordered by object id.
func (m *ToplevelManager) Toplevels() []Properties {
	ids := make([]wayland.ObjectID, 0, len(m.toplevels))
	for id := range m.toplevels {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Properties, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.toplevels[id].props)
	}
	return out
}

// Stopped reports whether the compositor has confirmed the stop request.
func (m *ToplevelManager) Stopped() bool {
	return m.finished
}

// Len returns the number of tracked toplevels.
func (m *ToplevelManager) Len() int {
	return len(m.toplevels)
}

// SetCallback registers fn to be called when the active toplevel changes.
// It replaces any earlier callback; nil removes it.
func (m *ToplevelManager) SetCallback(fn Callback) {
	m.callback = fn
}

// SetSelfID sets our own app id; activations that resolve to it are ignored.
// An empty id disables the filter.
func (m *ToplevelManager) SetSelfID(id string) {
	m.selfID = id
}

// Destroy stops listening and drops every tracked toplevel. The manager
// proxy itself is released once the compositor answers with finished.
func (m *ToplevelManager) Destroy() error {
	if !m.tracking {
		return nil
	}
	m.tracking = false

	var result *multierror.Error
	if m.proxy != nil {
		if err := m.proxy.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop toplevel manager: %w", err))
		}
	}

	for id, t := range m.toplevels {
		t.retire()
		if err := t.handle.Destroy(); err != nil {
			result = multierror.Append(result, fmt.Errorf("destroy toplevel %d: %w", id, err))
		}
	}
	m.log.Debug("Dropped tracked toplevels", "count", len(m.toplevels))
	clear(m.toplevels)
	m.active = 0

	return result.ErrorOrNil()
}

// Close destroys the manager and, when Create opened it, the connection.
func (m *ToplevelManager) Close() error {
	var result *multierror.Error
	if err := m.Destroy(); err != nil {
		result = multierror.Append(result, err)
	}
	if m.ownsConn && m.conn != nil {
		if err := m.conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close wayland connection: %w", err))
		}
	}
	return result.ErrorOrNil()
}

func (m *ToplevelManager) addToplevel(h toplevelHandle) {
	if !m.tracking {
		// stopped; we don't care about new toplevels anymore
		if err := h.Destroy(); err != nil {
			m.log.Error("Failed to destroy late toplevel handle", err, "id", h.ID())
		}
		return
	}

	id := h.ID()
	if old, ok := m.toplevels[id]; ok {
		m.log.Warn("Toplevel id reused before close, dropping stale record", "id", id)
		m.detach(old)
	}

	t := newToplevel(m, h)
	m.toplevels[id] = t
	h.SetListener(t)
	m.log.Debug("New toplevel", "id", id)
}

// removeToplevel handles closed: the record leaves the table and its handle
// is destroyed.
func (m *ToplevelManager) removeToplevel(t *toplevel) {
	m.detach(t)
	if err := t.handle.Destroy(); err != nil {
		m.log.Error("Failed to destroy toplevel handle", err, "id", t.id)
	}
	m.log.Debug("Toplevel closed", "id", t.id, "app_id", Value(t.props.AppID))
}

func (m *ToplevelManager) detach(t *toplevel) {
	if cur, ok := m.toplevels[t.id]; ok && cur == t {
		delete(m.toplevels, t.id)
	}
	if m.active == t.id {
		m.active = 0
		m.activeSettled = t.initialized
		m.log.Debug("Active toplevel closed", "id", t.id)
	}
	t.retire()
}

// managerEvents adapts the manager to the protocol listener without
// exporting the event methods.
type managerEvents struct {
	m *ToplevelManager
}

var _ wlr.ManagerListener = managerEvents{}

func (e managerEvents) Toplevel(h *wlr.Handle) {
	e.m.addToplevel(h)
}

func (e managerEvents) Finished() {
	e.m.finished = true
	e.m.proxy = nil
	e.m.log.Debug("Toplevel manager finished")
}
