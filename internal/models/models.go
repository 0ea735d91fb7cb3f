package models

import (
	"time"
)

// Activation is one change of the active app as recorded in the history.
type Activation struct {
	Timestamp time.Time `json:"timestamp"`
	AppID     string    `json:"app_id"`
	// MenuKind is "gtk", "kde" or "none"
	MenuKind string `json:"menu_kind"`
	// Menu is the human readable description of the selected menu
	Menu string `json:"menu"`
}
