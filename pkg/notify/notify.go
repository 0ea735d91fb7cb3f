package notify

import (
	"os/exec"
	"sync"

	"github.com/godbus/dbus/v5"

	"global-menu/pkg/core"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	Error NotificationType = iota
	Info
)

func (t NotificationType) String() string {
	if t == Error {
		return "ERROR"
	}
	return "INFO"
}

// NotifyService handles desktop notifications
type NotifyService struct {
	log           core.Logger
	notifyCommand string

	mu sync.Mutex
	// bus is the org.freedesktop.Notifications object, nil when not connected
	bus    dbus.BusObject
	lastID uint32

	lookPath func(file string) (string, error)
	run      func(cmd *exec.Cmd) error
}

// NewNotifyService creates a new notification service
func NewNotifyService(notifyCommand string, log core.Logger) *NotifyService {
	if log == nil {
		log = core.Nop()
	}
	return &NotifyService{
		log:           log,
		notifyCommand: notifyCommand,
		lookPath:      exec.LookPath,
		run:           (*exec.Cmd).Run,
	}
}

// UseSessionBus sends notifications over conn before trying external tools.
func (n *NotifyService) UseSessionBus(conn *dbus.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bus = conn.Object(notificationsName, notificationsPath)
}

// Show displays a notification of the specified type
func (n *NotifyService) Show(title string, message string, nType NotificationType) error {
	// First try configured notification command if available
	if n.notifyCommand != "" {
		if err := n.executeNotifyCommand(message, nType); err == nil {
			return nil
		}
		n.log.Warn("Custom notification command failed", "command", n.notifyCommand)
	}

	if err := n.tryBusNotification(title, message, nType); err == nil {
		return nil
	}

	// Try system notification tools
	if err := n.trySystemNotification(title, message, nType); err == nil {
		return nil
	}

	// If running in terminal, print directly
	if isRunningInTerminal() {
		return n.printToTerminal(title, message, nType)
	}

	// Last resort: log file
	return n.writeToLogFile(title, message, nType)
}

// executeNotifyCommand runs the configured command with the type and
// message as positional arguments.
func (n *NotifyService) executeNotifyCommand(message string, nType NotificationType) error {
	n.log.Debug("Executing notify command", "notifyCommand", n.notifyCommand,
		"nType", nType.String())

	cmd := exec.Command("sh", "-c", n.notifyCommand+` "$@"`, "sh", nType.String(), message)
	return n.run(cmd)
}
