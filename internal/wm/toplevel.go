package wm

import (
	"global-menu/internal/wayland"
	"global-menu/internal/wayland/wlr"
)

// toplevel is the record kept for one window reported by the compositor.
type toplevel struct {
	manager *ToplevelManager
	handle  toplevelHandle
	id      wayland.ObjectID
	// parent is resolved through the manager's table; 0 means none.
	parent wayland.ObjectID
	// initialized is set by the first done event.
	initialized bool
	// retired records ignore every later event.
	retired bool

	props Properties
}

var _ wlr.HandleListener = (*toplevel)(nil)

func newToplevel(m *ToplevelManager, h toplevelHandle) *toplevel {
	return &toplevel{
		manager: m,
		handle:  h,
		id:      h.ID(),
	}
}

func (t *toplevel) Title(string) {}

func (t *toplevel) AppID(appID string) {
	if t.retired {
		return
	}
	t.props.AppID = &appID
}

func (t *toplevel) OutputEnter(wayland.ObjectID) {}

func (t *toplevel) OutputLeave(wayland.ObjectID) {}

func (t *toplevel) State(states []uint32) {
	if t.retired {
		return
	}
	for _, s := range states {
		if s == wlr.StateActivated {
			t.manager.activate(t)
			return
		}
	}
}

func (t *toplevel) Done() {
	if t.retired {
		return
	}
	t.initialized = true
}

func (t *toplevel) Closed() {
	if t.retired {
		return
	}
	t.manager.removeToplevel(t)
}

func (t *toplevel) Parent(parent wayland.ObjectID) {
	if t.retired {
		return
	}
	t.parent = parent
}

func (t *toplevel) ClientDBusAnnotation(iface string, busName, objectPath *string) {
	if t.retired {
		return
	}
	t.manager.log.Debug("Got client annotation",
		"id", t.id,
		"interface", iface,
		"bus_name", Value(busName),
		"object_path", Value(objectPath))

	// only the application action group is announced per client
	if iface == InterfaceActions {
		t.props.ApplicationObjectPath = clone(objectPath)
		t.props.ApplicationBusName = clone(busName)
	}
}

func (t *toplevel) SurfaceDBusAnnotation(iface string, busName, objectPath *string) {
	if t.retired {
		return
	}
	t.manager.log.Debug("Got surface annotation",
		"id", t.id,
		"interface", iface,
		"bus_name", Value(busName),
		"object_path", Value(objectPath))

	switch iface {
	case InterfaceActions:
		t.props.WindowObjectPath = clone(objectPath)
		t.props.WindowBusName = clone(busName)
	case InterfaceMenus:
		t.props.MenubarPath = clone(objectPath)
		t.props.MenubarBusName = clone(busName)
	case InterfaceDBusMenu:
		t.props.KDEObjectPath = clone(objectPath)
		t.props.KDEServiceName = clone(busName)
	}
}

// retire detaches the record; later events for it are no-ops.
func (t *toplevel) retire() {
	t.retired = true
	t.handle.SetListener(nil)
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
