package notify

import (
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-multierror"
)

// notificationTool is an external program that can show a notification.
type notificationTool struct {
	name string
	args func(title string, message string, urgency string) []string
}

var notificationTools = []notificationTool{
	{
		name: "dunstify",
		args: func(title string, message string, urgency string) []string {
			// the stack tag replaces our own previous notification
			return []string{"-u", urgency, "-t", "5000", "-h", "string:x-dunst-stack-tag:" + appName, title, message}
		},
	},
	{
		name: "notify-send",
		args: func(title string, message string, urgency string) []string {
			return []string{"-a", appName, "-u", urgency, title, message}
		},
	},
}

func toolUrgency(title string, nType NotificationType) (string, string) {
	if nType == Error {
		return title + " Error", "critical"
	}
	return title, "normal"
}

// trySystemNotification runs the first installed tool that succeeds.
func (n *NotifyService) trySystemNotification(title string, message string, nType NotificationType) error {
	title, urgency := toolUrgency(title, nType)

	var result *multierror.Error
	for _, tool := range notificationTools {
		path, err := n.lookPath(tool.name)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, tool.args(title, message, urgency)...)
		if err := n.run(cmd); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", tool.name, err))
			continue
		}
		n.log.Debug("Notification sent successfully",
			"tool", tool.name,
			"type", nType.String())
		return nil
	}
	if result == nil {
		return fmt.Errorf("no notification tools available")
	}
	return result
}
