package menu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"global-menu/internal/wm"
)

func str(s string) *string { return &s }

func TestSelect(t *testing.T) {
	tests := []struct {
		name  string
		props wm.Properties
		want  Menu
	}{
		{
			name:  "nothing exported",
			props: wm.Properties{AppID: str("foot")},
			want:  Menu{Kind: KindNone},
		},
		{
			name: "gtk with both action groups",
			props: wm.Properties{
				MenubarBusName:        str(":1.7"),
				MenubarPath:           str("/org/gnome/TextEditor/menus/menubar"),
				ApplicationBusName:    str(":1.7"),
				ApplicationObjectPath: str("/org/gnome/TextEditor"),
				WindowBusName:         str(":1.7"),
				WindowObjectPath:      str("/org/gnome/TextEditor/window/1"),
			},
			want: Menu{
				Kind:  KindGTK,
				Model: Endpoint{BusName: ":1.7", Path: "/org/gnome/TextEditor/menus/menubar"},
				ActionGroups: map[string]Endpoint{
					PrefixApp: {BusName: ":1.7", Path: "/org/gnome/TextEditor"},
					PrefixWin: {BusName: ":1.7", Path: "/org/gnome/TextEditor/window/1"},
				},
			},
		},
		{
			name: "gtk with window group only",
			props: wm.Properties{
				MenubarBusName:   str(":1.7"),
				MenubarPath:      str("/menubar"),
				WindowBusName:    str(":1.7"),
				WindowObjectPath: str("/window/1"),
			},
			want: Menu{
				Kind:         KindGTK,
				Model:        Endpoint{BusName: ":1.7", Path: "/menubar"},
				ActionGroups: map[string]Endpoint{PrefixWin: {BusName: ":1.7", Path: "/window/1"}},
			},
		},
		{
			name: "menubar without action groups falls back to kde",
			props: wm.Properties{
				MenubarBusName: str(":1.7"),
				MenubarPath:    str("/menubar"),
				KDEServiceName: str(":1.9"),
				KDEObjectPath:  str("/MenuBar/1"),
			},
			want: Menu{Kind: KindKDE, Model: Endpoint{BusName: ":1.9", Path: "/MenuBar/1"}},
		},
		{
			name: "incomplete action group does not count",
			props: wm.Properties{
				MenubarBusName:        str(":1.7"),
				MenubarPath:           str("/menubar"),
				ApplicationObjectPath: str("/app"),
			},
			want: Menu{Kind: KindNone},
		},
		{
			name: "gtk wins over kde",
			props: wm.Properties{
				MenubarBusName:        str(":1.7"),
				MenubarPath:           str("/menubar"),
				ApplicationBusName:    str(":1.7"),
				ApplicationObjectPath: str("/app"),
				KDEServiceName:        str(":1.9"),
				KDEObjectPath:         str("/MenuBar/1"),
			},
			want: Menu{
				Kind:         KindGTK,
				Model:        Endpoint{BusName: ":1.7", Path: "/menubar"},
				ActionGroups: map[string]Endpoint{PrefixApp: {BusName: ":1.7", Path: "/app"}},
			},
		},
		{
			name:  "kde needs both fields",
			props: wm.Properties{KDEServiceName: str(":1.9")},
			want:  Menu{Kind: KindNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.props))
		})
	}
}

func TestMenuString(t *testing.T) {
	m := Menu{
		Kind:  KindGTK,
		Model: Endpoint{BusName: ":1.7", Path: "/menubar"},
		ActionGroups: map[string]Endpoint{
			PrefixWin: {BusName: ":1.7", Path: "/window/1"},
			PrefixApp: {BusName: ":1.8", Path: "/app"},
		},
	}
	assert.Equal(t, "gtk menubar :1.7/menubar app=:1.8/app win=:1.7/window/1", m.String())
	assert.Equal(t, "dbusmenu :1.9/MenuBar/1", Menu{Kind: KindKDE, Model: Endpoint{":1.9", "/MenuBar/1"}}.String())
	assert.Equal(t, "no menu", Menu{Kind: KindNone}.String())
}

type fakeNames struct {
	owned map[string]bool
	err   error
	asked []string
}

func (f *fakeNames) NameHasOwner(name string) (bool, error) {
	f.asked = append(f.asked, name)
	if f.err != nil {
		return false, f.err
	}
	return f.owned[name], nil
}

func TestBusCheckerDeduplicatesNames(t *testing.T) {
	names := &fakeNames{owned: map[string]bool{":1.7": true, ":1.8": true}}
	m := Menu{
		Kind:  KindGTK,
		Model: Endpoint{BusName: ":1.7", Path: "/menubar"},
		ActionGroups: map[string]Endpoint{
			PrefixApp: {BusName: ":1.8", Path: "/app"},
			PrefixWin: {BusName: ":1.7", Path: "/window/1"},
		},
	}

	require.NoError(t, NewBusChecker(names, nil).Check(m))
	assert.Equal(t, []string{":1.7", ":1.8"}, names.asked)
}

func TestBusCheckerReportsMissingOwners(t *testing.T) {
	names := &fakeNames{owned: map[string]bool{}}
	m := Menu{Kind: KindKDE, Model: Endpoint{BusName: ":1.9", Path: "/MenuBar/1"}}

	err := NewBusChecker(names, nil).Check(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoOwner)
	assert.Contains(t, err.Error(), ":1.9")
}

func TestBusCheckerPropagatesBusErrors(t *testing.T) {
	boom := errors.New("bus gone")
	names := &fakeNames{err: boom}
	m := Menu{Kind: KindKDE, Model: Endpoint{BusName: ":1.9", Path: "/MenuBar/1"}}

	err := NewBusChecker(names, nil).Check(m)
	assert.ErrorIs(t, err, boom)
}

func TestBusCheckerIgnoresEmptyMenu(t *testing.T) {
	names := &fakeNames{}
	require.NoError(t, NewBusChecker(names, nil).Check(Menu{Kind: KindNone}))
	assert.Empty(t, names.asked)
}
