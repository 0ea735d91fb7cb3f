package menu

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-multierror"

	"global-menu/pkg/core"
)

// ErrNoOwner means a bus name referenced by a menu has no owner.
var ErrNoOwner = errors.New("bus name has no owner")

// NameChecker reports whether a bus name is currently owned.
type NameChecker interface {
	NameHasOwner(name string) (bool, error)
}

// BusChecker verifies that the bus names a menu points at are reachable.
type BusChecker struct {
	names NameChecker
	log   core.Logger
}

func NewBusChecker(names NameChecker, log core.Logger) *BusChecker {
	if log == nil {
		log = core.Nop()
	}
	return &BusChecker{names: names, log: log}
}

// Check returns nil when every bus name of m has an owner. Unreachable names
// are reported together.
func (b *BusChecker) Check(m Menu) error {
	var result *multierror.Error
	for _, name := range m.BusNames() {
		owned, err := b.names.NameHasOwner(name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("query owner of %s: %w", name, err))
			continue
		}
		if !owned {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrNoOwner, name))
			continue
		}
		b.log.Debug("Bus name reachable", "name", name)
	}
	return result.ErrorOrNil()
}

// SessionBus answers NameHasOwner through the bus daemon of the session bus.
type SessionBus struct {
	conn *dbus.Conn
}

// ConnectSessionBus opens a private connection to the session bus.
func ConnectSessionBus() (*SessionBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &SessionBus{conn: conn}, nil
}

func (s *SessionBus) NameHasOwner(name string) (bool, error) {
	var owned bool
	err := s.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned)
	return owned, err
}

// Conn exposes the connection for other session bus users.
func (s *SessionBus) Conn() *dbus.Conn {
	return s.conn
}

func (s *SessionBus) Close() error {
	return s.conn.Close()
}
