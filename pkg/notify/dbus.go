package notify

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsNotify = notificationsName + ".Notify"

	appName = "global-menu"
	// expireTimeout is in milliseconds
	expireTimeout int32 = 5000
)

var errNoBus = errors.New("session bus not connected")

// urgency hint values of org.freedesktop.Notifications
const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// tryBusNotification replaces the previous notification so rapid focus
// changes don't pile up.
func (n *NotifyService) tryBusNotification(title string, message string, nType NotificationType) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bus == nil {
		return errNoBus
	}

	urgency := urgencyNormal
	if nType == Error {
		urgency = urgencyCritical
		title += " Error"
	}
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgency),
	}

	var id uint32
	call := n.bus.Call(notificationsNotify, 0,
		appName, n.lastID, "", title, message, []string{}, hints, expireTimeout)
	if err := call.Store(&id); err != nil {
		n.log.Debug("D-Bus notification failed", "error", err.Error())
		return fmt.Errorf("notify over d-bus: %w", err)
	}
	n.lastID = id

	n.log.Debug("Notification sent successfully",
		"tool", "dbus",
		"id", id,
		"type", nType.String())
	return nil
}
