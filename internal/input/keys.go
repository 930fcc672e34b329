package input

import (
	"fmt"
	"strings"

	"rustactions/internal/services"
)

// Key is a named key with its Windows virtual-key code and X11 keysym.
type Key struct {
	Name     string
	VK       uint16
	Keysym   string
	Extended bool
}

var keyTable = map[string]Key{}

var keyAliases = map[string]string{
	"return":        "enter",
	"esc":           "escape",
	"del":           "delete",
	"ins":           "insert",
	"page_up":       "pageup",
	"page_down":     "pagedown",
	"num_lock":      "numlock",
	"up_arrow":      "up",
	"down_arrow":    "down",
	"left_arrow":    "left",
	"right_arrow":   "right",
	"uparrow":       "up",
	"downarrow":     "down",
	"leftarrow":     "left",
	"rightarrow":    "right",
	"bracket_left":  "leftbracket",
	"bracket_right": "rightbracket",
	"leftshift":     "shift",
	"left_shift":    "shift",
	"leftcontrol":   "ctrl",
	"left_ctrl":     "ctrl",
	"control":       "ctrl",
	"left_alt":      "alt",
	",":             "comma",
	".":             "period",
	"/":             "slash",
	"[":             "leftbracket",
	"]":             "rightbracket",
	";":             "semicolon",
	"-":             "minus",
	"=":             "equals",
	"\\":            "backslash",
	"`":             "backtick",
	"'":             "quote",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		name := string(c)
		register(name, uint16('A'+(c-'a')), name, false)
	}
	for d := '0'; d <= '9'; d++ {
		name := string(d)
		register(name, uint16(d), name, false)
		register("keypad"+name, uint16(0x60+(d-'0')), "KP_"+name, false)
	}
	for i := 1; i <= 24; i++ {
		register(fmt.Sprintf("f%d", i), uint16(0x70+i-1), fmt.Sprintf("F%d", i), false)
	}

	register("keypadperiod", 0x6E, "KP_Decimal", false)
	register("keypadplus", 0x6B, "KP_Add", false)
	register("keypadminus", 0x6D, "KP_Subtract", false)
	register("keypadmultiply", 0x6A, "KP_Multiply", false)
	register("keypaddivide", 0x6F, "KP_Divide", true)
	register("keypadenter", 0x0D, "KP_Enter", true)

	register("enter", 0x0D, "Return", false)
	register("space", 0x20, "space", false)
	register("tab", 0x09, "Tab", false)
	register("escape", 0x1B, "Escape", false)
	register("backspace", 0x08, "BackSpace", false)
	register("delete", 0x2E, "Delete", true)
	register("insert", 0x2D, "Insert", true)
	register("home", 0x24, "Home", true)
	register("end", 0x23, "End", true)
	register("pageup", 0x21, "Prior", true)
	register("pagedown", 0x22, "Next", true)
	register("numlock", 0x90, "Num_Lock", true)
	register("up", 0x26, "Up", true)
	register("down", 0x28, "Down", true)
	register("left", 0x25, "Left", true)
	register("right", 0x27, "Right", true)

	register("shift", 0x10, "Shift_L", false)
	register("ctrl", 0x11, "Control_L", false)
	register("alt", 0x12, "Alt_L", false)

	register("semicolon", 0xBA, "semicolon", false)
	register("equals", 0xBB, "equal", false)
	register("comma", 0xBC, "comma", false)
	register("minus", 0xBD, "minus", false)
	register("period", 0xBE, "period", false)
	register("slash", 0xBF, "slash", false)
	register("backtick", 0xC0, "grave", false)
	register("leftbracket", 0xDB, "bracketleft", false)
	register("backslash", 0xDC, "backslash", false)
	register("rightbracket", 0xDD, "bracketright", false)
	register("quote", 0xDE, "apostrophe", false)
}

func register(name string, vk uint16, keysym string, extended bool) {
	keyTable[name] = Key{Name: name, VK: vk, Keysym: keysym, Extended: extended}
}

// LookupKey resolves a key name, case-insensitively and through aliases.
func LookupKey(name string) (Key, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := keyAliases[name]; ok {
		name = alias
	}
	key, ok := keyTable[name]
	return key, ok
}

// ParseCombo splits a "+"-joined combination into keys.
func ParseCombo(combo string) ([]Key, error) {
	parts := strings.Split(combo, "+")
	keys := make([]Key, 0, len(parts))
	for _, part := range parts {
		key, ok := LookupKey(part)
		if !ok {
			return nil, services.Validation("input", fmt.Sprintf("unknown key %q in combination %q", part, combo))
		}
		keys = append(keys, key)
	}
	return keys, nil
}
