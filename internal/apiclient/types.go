package apiclient

import (
	"rustactions/internal/daemon"
	"rustactions/internal/dispatch"
	"rustactions/internal/history"
	"rustactions/internal/items"
	"rustactions/internal/keybinds"
)

// Response documents are the daemon's own types.
type (
	Status       = daemon.Status
	Item         = items.Record
	HistoryEntry = history.Entry
)

// ActionList is the /actions response.
type ActionList struct {
	Actions  []dispatch.ActionSpec `json:"actions"`
	Gestures []string              `json:"gestures"`
}

// Binds is the /binds response.
type Binds struct {
	Summary      keybinds.Summary       `json:"summary"`
	APICommands  []keybinds.APICommand  `json:"api_commands"`
	CraftBinds   []keybinds.CraftBind   `json:"craft_binds"`
	DynamicBinds []keybinds.DynamicBind `json:"dynamic_binds"`
}
