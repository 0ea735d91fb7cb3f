package wayland

import (
	"errors"
	"fmt"
)

// wl_display
const (
	displaySync        uint16 = 0
	displayGetRegistry uint16 = 1

	displayEventError    uint16 = 0
	displayEventDeleteID uint16 = 1
)

// wl_registry
const (
	registryBind uint16 = 0

	registryEventGlobal       uint16 = 0
	registryEventGlobalRemove uint16 = 1
)

// wl_callback
const callbackEventDone uint16 = 0

var ErrProtocol = errors.New("wayland: protocol error")

// ProtocolError is the fatal error reported through wl_display.error.
type ProtocolError struct {
	Object  ObjectID
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wayland: protocol error on object %d (code %d): %s", e.Object, e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

// UnknownOpcodeError is returned when an event opcode is not part of the interface.
type UnknownOpcodeError struct {
	Interface string
	Opcode    uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("wayland: unknown %s event opcode %d", e.Interface, e.Opcode)
}

// Display is the wl_display singleton, object id 1.
type Display struct {
	Proxy
}

func (d *Display) Base() *Proxy { return &d.Proxy }

// Sync asks the compositor to fire the returned callback once all prior
// requests have been handled.
func (d *Display) Sync() (*Callback, error) {
	cb := &Callback{}
	id := d.conn.NewObject(cb, 1)
	if err := d.Request(displaySync, new(Encoder).NewID(id)); err != nil {
		d.conn.Retire(id)
		return nil, err
	}
	return cb, nil
}

// GetRegistry creates the registry that announces compositor globals.
func (d *Display) GetRegistry() (*Registry, error) {
	r := &Registry{}
	id := d.conn.NewObject(r, 1)
	if err := d.Request(displayGetRegistry, new(Encoder).NewID(id)); err != nil {
		d.conn.Retire(id)
		return nil, err
	}
	return r, nil
}

func (d *Display) Dispatch(opcode uint16, dec *Decoder) error {
	switch opcode {
	case displayEventError:
		obj := dec.Object()
		code := dec.Uint()
		msg, _ := dec.String()
		return &ProtocolError{Object: obj, Code: code, Message: msg}
	case displayEventDeleteID:
		d.conn.deleteID(ObjectID(dec.Uint()))
		return nil
	}
	return &UnknownOpcodeError{Interface: "wl_display", Opcode: opcode}
}

// Callback is a one-shot wl_callback.
type Callback struct {
	Proxy
	done bool
	data uint32
}

func (c *Callback) Base() *Proxy { return &c.Proxy }

func (c *Callback) Done() bool {
	return c.done
}

func (c *Callback) Dispatch(opcode uint16, dec *Decoder) error {
	if opcode != callbackEventDone {
		return &UnknownOpcodeError{Interface: "wl_callback", Opcode: opcode}
	}
	c.data = dec.Uint()
	c.done = true
	// wl_callback.done is a destructor event
	c.conn.Retire(c.id)
	return nil
}

// Global is one registry announcement.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry is the wl_registry proxy.
type Registry struct {
	Proxy
	onGlobal func(Global)
	onRemove func(name uint32)
}

func (r *Registry) Base() *Proxy { return &r.Proxy }

func (r *Registry) SetGlobalHandler(fn func(Global)) {
	r.onGlobal = fn
}

func (r *Registry) SetGlobalRemoveHandler(fn func(name uint32)) {
	r.onRemove = fn
}

// Bind creates obj as the client side of global name at the given version.
func (r *Registry) Bind(name uint32, iface string, version uint32, obj Object) error {
	id := r.conn.NewObject(obj, version)
	e := new(Encoder).Uint(name).String(iface).Uint(version).NewID(id)
	if err := r.Request(registryBind, e); err != nil {
		r.conn.Retire(id)
		return err
	}
	return nil
}

func (r *Registry) Dispatch(opcode uint16, dec *Decoder) error {
	switch opcode {
	case registryEventGlobal:
		g := Global{Name: dec.Uint()}
		g.Interface, _ = dec.String()
		g.Version = dec.Uint()
		if dec.Err() == nil && r.onGlobal != nil {
			r.onGlobal(g)
		}
		return nil
	case registryEventGlobalRemove:
		name := dec.Uint()
		if dec.Err() == nil && r.onRemove != nil {
			r.onRemove(name)
		}
		return nil
	}
	return &UnknownOpcodeError{Interface: "wl_registry", Opcode: opcode}
}
