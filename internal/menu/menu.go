// Package menu decides which exported menu, if any, belongs to the active
// toplevel.
package menu

import (
	"fmt"

	"global-menu/internal/wm"
)

// Kind names the menu implementation an application exports.
type Kind string

const (
	KindNone Kind = "none"
	// KindGTK is a GMenuModel menubar plus GActionGroups on the session bus.
	KindGTK Kind = "gtk"
	// KindKDE is a com.canonical.dbusmenu tree.
	KindKDE Kind = "kde"
)

// Action group prefixes used by GTK menu models.
const (
	PrefixApp = "app"
	PrefixWin = "win"
)

// Endpoint is an object on a D-Bus connection.
type Endpoint struct {
	BusName string `json:"bus_name"`
	Path    string `json:"path"`
}

func (e Endpoint) String() string {
	return e.BusName + e.Path
}

// Menu describes where a menu can be fetched from.
type Menu struct {
	Kind Kind `json:"kind"`
	// Model is the menubar for GTK and the dbusmenu root for KDE.
	Model Endpoint `json:"model"`
	// ActionGroups maps a GTK action prefix to its group.
	ActionGroups map[string]Endpoint `json:"action_groups,omitempty"`
}

// BusNames returns every distinct bus name the menu depends on.
func (m Menu) BusNames() []string {
	if m.Kind == KindNone {
		return nil
	}
	seen := map[string]bool{m.Model.BusName: true}
	names := []string{m.Model.BusName}
	for _, prefix := range []string{PrefixApp, PrefixWin} {
		g, ok := m.ActionGroups[prefix]
		if !ok || seen[g.BusName] {
			continue
		}
		seen[g.BusName] = true
		names = append(names, g.BusName)
	}
	return names
}

func (m Menu) String() string {
	switch m.Kind {
	case KindGTK:
		s := fmt.Sprintf("gtk menubar %s", m.Model)
		for _, prefix := range []string{PrefixApp, PrefixWin} {
			if g, ok := m.ActionGroups[prefix]; ok {
				s += fmt.Sprintf(" %s=%s", prefix, g)
			}
		}
		return s
	case KindKDE:
		return fmt.Sprintf("dbusmenu %s", m.Model)
	}
	return "no menu"
}

// Select picks the menu to show for props. A GTK menubar wins when it comes
// with at least one complete action group; otherwise a KDE dbusmenu is used
// when both its service and path are known.
func Select(props wm.Properties) Menu {
	if m, ok := selectGTK(props); ok {
		return m
	}
	if props.KDEServiceName != nil && props.KDEObjectPath != nil {
		return Menu{
			Kind:  KindKDE,
			Model: Endpoint{BusName: *props.KDEServiceName, Path: *props.KDEObjectPath},
		}
	}
	return Menu{Kind: KindNone}
}

func selectGTK(props wm.Properties) (Menu, bool) {
	if props.MenubarPath == nil || props.MenubarBusName == nil {
		return Menu{}, false
	}

	groups := make(map[string]Endpoint, 2)
	if props.ApplicationObjectPath != nil && props.ApplicationBusName != nil {
		groups[PrefixApp] = Endpoint{BusName: *props.ApplicationBusName, Path: *props.ApplicationObjectPath}
	}
	if props.WindowObjectPath != nil && props.WindowBusName != nil {
		groups[PrefixWin] = Endpoint{BusName: *props.WindowBusName, Path: *props.WindowObjectPath}
	}
	if len(groups) == 0 {
		return Menu{}, false
	}

	return Menu{
		Kind:         KindGTK,
		Model:        Endpoint{BusName: *props.MenubarBusName, Path: *props.MenubarPath},
		ActionGroups: groups,
	}, true
}
