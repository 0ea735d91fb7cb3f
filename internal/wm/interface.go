package wm

import (
	"errors"

	"global-menu/internal/wayland"
	"global-menu/internal/wayland/wlr"
)

// D-Bus interfaces named by annotation events.
const (
	InterfaceActions  = "org.gtk.Actions"
	InterfaceMenus    = "org.gtk.Menus"
	InterfaceDBusMenu = "com.canonical.dbusmenu"
)

var (
	// ErrNoDisplay means no Wayland display could be reached.
	ErrNoDisplay = errors.New("cannot connect to Wayland display, not running in a Wayland session?")
	// ErrUnsupported means the compositor never advertised the foreign toplevel manager.
	ErrUnsupported = errors.New("could not bind wlr-foreign-toplevel interface, the compositor might not support this protocol")
)

// Properties are the attributes of a toplevel that matter for menu lookup.
// Every field is independently present (non-nil) or absent.
type Properties struct {
	AppID *string `json:"app_id,omitempty"`

	MenubarPath           *string `json:"menubar_path,omitempty"`
	MenubarBusName        *string `json:"menubar_bus_name,omitempty"`
	WindowObjectPath      *string `json:"window_object_path,omitempty"`
	WindowBusName         *string `json:"window_bus_name,omitempty"`
	ApplicationObjectPath *string `json:"application_object_path,omitempty"`
	ApplicationBusName    *string `json:"application_bus_name,omitempty"`

	KDEServiceName *string `json:"kde_service_name,omitempty"`
	KDEObjectPath  *string `json:"kde_object_path,omitempty"`
}

// Value returns the string behind an optional field, or "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Callback is notified when the active toplevel changes. Any consumer state
// travels in the closure.
type Callback func(m *ToplevelManager)

// toplevelHandle is the protocol object behind a toplevel record.
type toplevelHandle interface {
	ID() wayland.ObjectID
	SetListener(l wlr.HandleListener)
	Destroy() error
}

// managerHandle is the bound foreign toplevel manager.
type managerHandle interface {
	SetListener(l wlr.ManagerListener)
	Stop() error
}
