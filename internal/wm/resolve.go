package wm

// rootOf follows parent references from t up to the toplevel that has no
// parent. A parent that is not tracked ends the walk, and so does a cycle.
func (m *ToplevelManager) rootOf(t *toplevel) *toplevel {
	root := t
	for hops := 0; root.parent != 0; hops++ {
		if hops >= len(m.toplevels) {
			m.log.Warn("Parent cycle detected", "id", t.id, "stopped_at", root.id)
			break
		}
		p, ok := m.toplevels[root.parent]
		if !ok {
			m.log.Debug("Parent is not tracked", "id", root.id, "parent", root.parent)
			break
		}
		root = p
	}
	return root
}

// activate runs when t reports the activated state. The active toplevel is
// the root of t's parent chain so dialogs attribute to their main window.
func (m *ToplevelManager) activate(t *toplevel) {
	// changes away from a record still in its initial state replay are not
	// reported
	wasSettled := m.previousSettled()

	root := m.rootOf(t)
	if root.id == m.active {
		return
	}
	if m.isSelf(root) {
		m.log.Debug("Ignoring activation of own window", "id", root.id, "app_id", m.selfID)
		return
	}

	m.active = root.id
	m.log.Debug("Active toplevel changed",
		"id", root.id,
		"activated", t.id,
		"app_id", Value(root.props.AppID),
		"notify", wasSettled)

	if wasSettled && m.callback != nil {
		m.callback(m)
	}
}

// previousSettled reports whether the active record had received its first
// done. With no active record it falls back to the state kept when the last
// one closed, or to whether the handshake has completed.
func (m *ToplevelManager) previousSettled() bool {
	if prev, ok := m.toplevels[m.active]; ok {
		return prev.initialized
	}
	return m.activeSettled
}

func (m *ToplevelManager) isSelf(t *toplevel) bool {
	return m.selfID != "" && t.props.AppID != nil && *t.props.AppID == m.selfID
}
