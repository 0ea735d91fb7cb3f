package wm

import (
	"fmt"

	"global-menu/internal/wayland"
	"global-menu/internal/wayland/wlr"
)

// bind looks up the foreign toplevel manager in the registry and keeps
// round-tripping until a full pass announces no new global.
func (m *ToplevelManager) bind() error {
	registry, err := m.conn.Display().GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	m.registry = registry
	registry.SetGlobalHandler(m.handleGlobal)
	registry.SetGlobalRemoveHandler(m.handleGlobalRemove)

	rounds := 0
	for {
		m.settled = true
		if err := m.conn.Roundtrip(); err != nil {
			m.log.Error("Registry roundtrip failed", err, "round", rounds)
			return fmt.Errorf("registry roundtrip: %w", err)
		}
		rounds++
		if m.settled {
			break
		}
	}
	m.log.Debug("Registry settled", "rounds", rounds)

	if m.proxy == nil {
		m.log.Error("Foreign toplevel manager not advertised", ErrUnsupported)
		return ErrUnsupported
	}
	m.finishHandshake()
	return nil
}

// finishHandshake marks the initial state replay as over, so the first
// activation on an otherwise unfocused desktop is reported.
func (m *ToplevelManager) finishHandshake() {
	m.activeSettled = true
}

func (m *ToplevelManager) handleGlobal(g wayland.Global) {
	m.settled = false
	if g.Interface != wlr.ManagerInterface {
		return
	}
	if m.proxy != nil {
		m.log.Debug("Ignoring additional toplevel manager global", "name", g.Name)
		return
	}

	version := min(g.Version, wlr.ManagerVersion)
	proxy, err := wlr.BindManager(m.registry, g.Name, version)
	if err != nil {
		m.log.Error("Failed to bind toplevel manager", err, "name", g.Name, "version", version)
		return
	}
	proxy.SetListener(managerEvents{m})
	m.proxy = proxy
	m.managerName = g.Name
	m.log.Info("Bound toplevel manager", "version", version, "advertised", g.Version)
}

func (m *ToplevelManager) handleGlobalRemove(name uint32) {
	m.settled = false
	if m.proxy != nil && name == m.managerName {
		// the compositor follows up with finished
		m.log.Warn("Toplevel manager global removed", "name", name)
	}
}
