// Package wlr binds the zwlr_foreign_toplevel_management_unstable_v1
// protocol, including the D-Bus annotation events some compositors send on
// toplevel handles.
package wlr

import (
	"global-menu/internal/wayland"
)

const (
	ManagerInterface = "zwlr_foreign_toplevel_manager_v1"
	HandleInterface  = "zwlr_foreign_toplevel_handle_v1"

	// ManagerVersion is the highest interface version understood here.
	ManagerVersion = 3
)

// zwlr_foreign_toplevel_manager_v1
const (
	managerStop uint16 = 0

	managerEventToplevel uint16 = 0
	managerEventFinished uint16 = 1
)

// zwlr_foreign_toplevel_handle_v1
const (
	handleDestroy uint16 = 7

	handleEventTitle                 uint16 = 0
	handleEventAppID                 uint16 = 1
	handleEventOutputEnter           uint16 = 2
	handleEventOutputLeave           uint16 = 3
	handleEventState                 uint16 = 4
	handleEventDone                  uint16 = 5
	handleEventClosed                uint16 = 6
	handleEventParent                uint16 = 7
	handleEventClientDBusAnnotation  uint16 = 8
	handleEventSurfaceDBusAnnotation uint16 = 9
)

// State values carried by the state event.
const (
	StateMaximized  uint32 = 0
	StateMinimized  uint32 = 1
	StateActivated  uint32 = 2
	StateFullscreen uint32 = 3
)

// ManagerListener receives manager events.
type ManagerListener interface {
	// Toplevel announces a new toplevel. The handle is already registered
	// on the connection; the listener owns it from here on.
	Toplevel(h *Handle)
	// Finished is the last event. The proxy is released right after it
	// returns.
	Finished()
}

// HandleListener receives the events of one toplevel handle.
type HandleListener interface {
	Title(title string)
	AppID(appID string)
	OutputEnter(output wayland.ObjectID)
	OutputLeave(output wayland.ObjectID)
	State(states []uint32)
	Done()
	Closed()
	// Parent reports the parent toplevel, or 0 when the toplevel has none.
	Parent(parent wayland.ObjectID)
	ClientDBusAnnotation(iface string, busName, objectPath *string)
	SurfaceDBusAnnotation(iface string, busName, objectPath *string)
}

// Manager is the zwlr_foreign_toplevel_manager_v1 proxy.
type Manager struct {
	wayland.Proxy
	listener ManagerListener
}

// BindManager binds the global announced under name.
func BindManager(r *wayland.Registry, name, version uint32) (*Manager, error) {
	m := &Manager{}
	if err := r.Bind(name, ManagerInterface, version, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) Base() *wayland.Proxy { return &m.Proxy }

// SetListener installs l; nil detaches the manager so new handles are
// destroyed on arrival.
func (m *Manager) SetListener(l ManagerListener) {
	m.listener = l
}

// Stop asks the compositor to stop sending events. It answers with finished.
func (m *Manager) Stop() error {
	return m.Request(managerStop, nil)
}

// Release drops the client side of the manager.
func (m *Manager) Release() {
	m.Conn().Retire(m.ID())
}

func (m *Manager) Dispatch(opcode uint16, d *wayland.Decoder) error {
	switch opcode {
	case managerEventToplevel:
		id := d.NewID()
		if err := d.Err(); err != nil {
			return err
		}
		h := &Handle{}
		m.Conn().RegisterObject(id, h, m.Version())
		if m.listener == nil {
			return h.Destroy()
		}
		m.listener.Toplevel(h)
		return nil
	case managerEventFinished:
		if m.listener != nil {
			m.listener.Finished()
		}
		m.Release()
		return nil
	}
	return &wayland.UnknownOpcodeError{Interface: ManagerInterface, Opcode: opcode}
}

// Handle is the zwlr_foreign_toplevel_handle_v1 proxy.
type Handle struct {
	wayland.Proxy
	listener  HandleListener
	destroyed bool
}

func (h *Handle) Base() *wayland.Proxy { return &h.Proxy }

func (h *Handle) SetListener(l HandleListener) {
	h.listener = l
}

// Destroy sends the destroy request and retires the proxy. Calling it twice
// is a no-op.
func (h *Handle) Destroy() error {
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	err := h.Request(handleDestroy, nil)
	h.Conn().Retire(h.ID())
	return err
}

func (h *Handle) Dispatch(opcode uint16, d *wayland.Decoder) error {
	switch opcode {
	case handleEventTitle, handleEventAppID:
		s, ok := d.String()
		if d.Err() != nil || !ok || h.listener == nil {
			return d.Err()
		}
		if opcode == handleEventTitle {
			h.listener.Title(s)
		} else {
			h.listener.AppID(s)
		}
	case handleEventOutputEnter, handleEventOutputLeave:
		out := d.Object()
		if d.Err() != nil || h.listener == nil {
			return d.Err()
		}
		if opcode == handleEventOutputEnter {
			h.listener.OutputEnter(out)
		} else {
			h.listener.OutputLeave(out)
		}
	case handleEventState:
		states := d.Uint32Array()
		if d.Err() != nil || h.listener == nil {
			return d.Err()
		}
		h.listener.State(states)
	case handleEventDone:
		if h.listener != nil {
			h.listener.Done()
		}
	case handleEventClosed:
		if h.listener != nil {
			h.listener.Closed()
		}
	case handleEventParent:
		parent := d.Object()
		if d.Err() != nil || h.listener == nil {
			return d.Err()
		}
		h.listener.Parent(parent)
	case handleEventClientDBusAnnotation, handleEventSurfaceDBusAnnotation:
		iface, ok := d.String()
		busName := d.OptString()
		objectPath := d.OptString()
		if d.Err() != nil || !ok || h.listener == nil {
			return d.Err()
		}
		if opcode == handleEventClientDBusAnnotation {
			h.listener.ClientDBusAnnotation(iface, busName, objectPath)
		} else {
			h.listener.SurfaceDBusAnnotation(iface, busName, objectPath)
		}
	default:
		return &wayland.UnknownOpcodeError{Interface: HandleInterface, Opcode: opcode}
	}
	return nil
}
