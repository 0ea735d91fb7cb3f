package notify

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	dbus.BusObject
	calls []*dbus.Call
	err   error
	next  uint32
}

func (b *fakeBus) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	b.next++
	call := &dbus.Call{Method: method, Args: args, Err: b.err, Body: []interface{}{b.next}}
	b.calls = append(b.calls, call)
	return call
}

type runner struct {
	cmds []*exec.Cmd
	err  error
}

func (r *runner) run(cmd *exec.Cmd) error {
	r.cmds = append(r.cmds, cmd)
	return r.err
}

func newTestService(command string, bus dbus.BusObject, tools ...string) (*NotifyService, *runner) {
	r := &runner{}
	n := NewNotifyService(command, nil)
	n.run = r.run
	n.lookPath = func(file string) (string, error) {
		for _, t := range tools {
			if t == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
	if bus != nil {
		n.bus = bus
	}
	return n, r
}

func TestCustomCommandComesFirst(t *testing.T) {
	bus := &fakeBus{}
	n, r := newTestService("my-notify", bus)

	require.NoError(t, n.Show("Global menu", "firefox's menu", Info))
	require.Len(t, r.cmds, 1)
	assert.Equal(t, []string{"sh", "-c", `my-notify "$@"`, "sh", "INFO", "firefox's menu"}, r.cmds[0].Args)
	assert.Empty(t, bus.calls)
}

func TestBusNotificationReplacesPrevious(t *testing.T) {
	bus := &fakeBus{}
	n, r := newTestService("", bus, "notify-send")

	require.NoError(t, n.Show("Global menu", "firefox", Info))
	require.NoError(t, n.Show("Global menu", "foot", Error))

	assert.Empty(t, r.cmds)
	require.Len(t, bus.calls, 2)

	first := bus.calls[0]
	assert.Equal(t, notificationsNotify, first.Method)
	assert.Equal(t, appName, first.Args[0])
	assert.Equal(t, uint32(0), first.Args[1])
	assert.Equal(t, "Global menu", first.Args[3])
	assert.Equal(t, "firefox", first.Args[4])
	assert.Equal(t, expireTimeout, first.Args[7])

	second := bus.calls[1]
	assert.Equal(t, uint32(1), second.Args[1])
	assert.Equal(t, "Global menu Error", second.Args[3])
	hints := second.Args[6].(map[string]dbus.Variant)
	assert.Equal(t, urgencyCritical, hints["urgency"].Value())
}

func TestFallsBackToTools(t *testing.T) {
	bus := &fakeBus{err: errors.New("no notification daemon")}
	n, r := newTestService("", bus, "notify-send")

	require.NoError(t, n.Show("Global menu", "firefox", Info))
	require.Len(t, r.cmds, 1)
	assert.Equal(t, []string{"/usr/bin/notify-send", "-a", appName, "-u", "normal", "Global menu", "firefox"}, r.cmds[0].Args)
}

func TestFailedToolsAreReported(t *testing.T) {
	n, r := newTestService("", nil, "dunstify", "notify-send")
	r.err = errors.New("exit status 1")

	err := n.trySystemNotification("Global menu", "firefox", Error)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dunstify: exit status 1")
	assert.Contains(t, err.Error(), "notify-send: exit status 1")

	require.Len(t, r.cmds, 2)
	assert.Equal(t, "dunstify", filepath.Base(r.cmds[0].Args[0]))
	assert.Contains(t, r.cmds[0].Args, "critical")
	assert.Contains(t, r.cmds[0].Args, "Global menu Error")
}

func TestNoToolsInstalled(t *testing.T) {
	n, r := newTestService("", nil)
	assert.EqualError(t, n.trySystemNotification("Global menu", "firefox", Info), "no notification tools available")
	assert.Empty(t, r.cmds)
}

func TestNoBusConfigured(t *testing.T) {
	n, _ := newTestService("", nil)
	assert.ErrorIs(t, n.tryBusNotification("Global menu", "firefox", Info), errNoBus)
}

func TestWriteToLogFileAppends(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	n, _ := newTestService("", nil)

	require.NoError(t, n.writeToLogFile("Global menu", "firefox", Info))
	require.NoError(t, n.writeToLogFile("Global menu", "foot", Error))

	data, err := os.ReadFile(filepath.Join(dir, appName, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Global menu - INFO: firefox")
	assert.Contains(t, string(data), "Global menu - ERROR: foot")
}
