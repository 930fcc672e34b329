package keybinds

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Section markers in keys.cfg.
const (
	userStart     = "#USER-SECTION-START"
	userEnd       = "#USER-SECTION-END"
	actionsStart  = "#RUST-ACTIONS-START"
	actionsEnd    = "#RUST-ACTIONS-END"
	dynamicHeader = "# === CHAT/CONNECTION BINDS ==="
)

const dynamicCommentPrefix = "# Dynamic: "

// defaultUserBinds are the game's stock binds, written when keys.cfg has no
// user binds to preserve.
var defaultUserBinds = []string{
	"bind tab inventory.toggle",
	"bind return chat.open",
	"bind space +jump",
	"bind 1 +slot1",
	"bind 2 +slot2",
	"bind 3 +slot3",
	"bind 4 +slot4",
	"bind 5 +slot5",
	"bind 6 +slot6",
	"bind 7 +holsteritem",
	"bind a +left",
	"bind b +gestures",
	"bind c forward;sprint",
	"bind d +right",
	"bind e +use",
	"bind f +focusmap;lighttoggle",
	"bind g +map",
	"bind h +hoverloot",
	"bind k exec keys.cfg",
	"bind m +firemode",
	"bind n inventory.examineheld",
	"bind p +pets",
	"bind q +ping",
	"bind r +reload",
	"bind s +backward",
	"bind t chat.open",
	"bind v +voice",
	"bind w +forward",
	"bind x swapseats",
	"bind y +opentutorialhelp",
	"bind z attack;duck",
	"bind pageup +zoomincrease",
	"bind pagedown +zoomdecrease",
	"bind f1 combatlog;consoletoggle",
	"bind leftshift +sprint",
	"bind leftcontrol +duck",
	"bind leftalt +altlook",
	"bind mouse0 +attack",
	"bind mouse1 +attack2",
	"bind mouse2 +attack3",
	"bind mouse3 inventory.togglecrafting",
	"bind mousewheelup +invprev",
	"bind mousewheeldown +invnext",
	"bind [leftcontrol+1] swaptoseat 0",
	"bind [leftcontrol+2] swaptoseat 1",
	"bind [leftcontrol+3] swaptoseat 2",
	"bind [leftcontrol+4] swaptoseat 3",
	"bind [leftshift+mousewheelup] +wireslackup",
	"bind [leftshift+mousewheeldown] +wireslackdown",
}

// parsedFile is what readConfig extracts from an existing keys.cfg.
type parsedFile struct {
	exists  bool
	user    []string
	dynamic []DynamicBind
	skipped int
}

func readConfig(path string) (parsedFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parsedFile{}, nil
	}
	if err != nil {
		return parsedFile{}, err
	}
	return parseConfig(data), nil
}

func parseConfig(data []byte) parsedFile {
	result := parsedFile{exists: true}
	var (
		lines      []string
		sectioned  bool
		section    string
		inDynamics bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lines = append(lines, line)
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case userStart:
			sectioned, section = true, "user"
			continue
		case actionsStart:
			sectioned, section = true, "actions"
			continue
		case userEnd, actionsEnd:
			section, inDynamics = "", false
			continue
		}
		switch section {
		case "user":
			result.user = append(result.user, line)
		case "actions":
			if trimmed == dynamicHeader {
				inDynamics = true
				continue
			}
			if inDynamics && strings.HasPrefix(trimmed, dynamicCommentPrefix) {
				bind, ok := parseDynamicComment(trimmed)
				if !ok {
					result.skipped++
					continue
				}
				result.dynamic = append(result.dynamic, bind)
			}
		}
	}
	if !sectioned {
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				result.user = append(result.user, trimmed)
			}
		}
	}
	return result
}

// parseDynamicComment reads "# Dynamic: <kind> - '<value>' - bind no.<slot>".
func parseDynamicComment(line string) (DynamicBind, bool) {
	rest := strings.TrimPrefix(line, dynamicCommentPrefix)
	i := strings.Index(rest, " - '")
	if i <= 0 {
		return DynamicBind{}, false
	}
	kind := strings.TrimSpace(rest[:i])
	tail := rest[i+len(" - '"):]
	j := strings.LastIndex(tail, "' - bind no.")
	if j < 0 {
		return DynamicBind{}, false
	}
	value := tail[:j]
	slot, err := strconv.Atoi(strings.TrimSpace(tail[j+len("' - bind no."):]))
	if err != nil || slot < DynamicStart || slot > DynamicEnd {
		return DynamicBind{}, false
	}
	if _, ok := dynamicTemplates[kind]; !ok || value == "" {
		return DynamicBind{}, false
	}
	return DynamicBind{Kind: kind, Value: value, Slot: slot}, true
}

// commentSafe flattens control characters so a value cannot leave its
// comment line.
func commentSafe(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, v)
}

type cfgWriter struct {
	buf bytes.Buffer
}

func (w *cfgWriter) line(format string, args ...any) {
	if len(args) == 0 {
		w.buf.WriteString(format)
	} else {
		fmt.Fprintf(&w.buf, format, args...)
	}
	w.buf.WriteByte('\n')
}

func (w *cfgWriter) bind(slot int, command string) {
	combo, _ := ComboForSlot(slot)
	w.line("bind [%s] %s", combo, command)
}

func (w *cfgWriter) reserved(from, to int) {
	for slot := from; slot <= to; slot++ {
		w.line("# Reserved bind no.%d", slot)
		w.bind(slot, `""`)
	}
}

// renderConfig builds the full keys.cfg contents.
func renderConfig(user []string, crafts []CraftBind, dynamic []DynamicBind) []byte {
	w := &cfgWriter{}
	w.line(userStart)
	for _, line := range user {
		w.line("%s", line)
	}
	w.line(userEnd)
	w.line("")

	w.line(actionsStart)
	w.line("# Rust Actions Programmatically Managed Binds")
	w.line("# Generated by rustactions")
	w.line("")

	w.line("# === CRAFTING BINDS ===")
	for _, c := range crafts {
		w.line("# Craft/Cancel %s (ID: %d) - reserved bind no.%d/%d", commentSafe(c.Name), c.NumericID, c.Craft, c.Cancel)
		w.bind(c.Craft, fmt.Sprintf("craft.add %d 1", c.NumericID))
		w.bind(c.Cancel, fmt.Sprintf("craft.cancel %d 1", c.NumericID))
		w.line("")
	}
	if next := CraftStart + 2*len(crafts); next <= CraftEnd {
		w.line("# Empty reserved binds for future crafting items")
		w.reserved(next, CraftEnd)
		w.line("")
	}
	w.line("")

	w.line("# === API BINDS ===")
	for i, cmd := range apiCommands {
		slot := APIStart + i
		w.line("# API: %s - reserved bind no.%d", cmd.name, slot)
		w.bind(slot, cmd.command)
		w.line("")
	}
	if next := APIStart + len(apiCommands); next <= APIEnd {
		w.line("# Empty reserved binds for future API commands")
		w.reserved(next, APIEnd)
		w.line("")
	}
	w.line("")

	w.line(dynamicHeader)
	used := make(map[int]bool, len(dynamic))
	for _, d := range dynamic {
		command, _ := DynamicCommand(d.Kind, d.Value)
		w.line("%s%s - '%s' - bind no.%d", dynamicCommentPrefix, d.Kind, d.Value, d.Slot)
		w.bind(d.Slot, command)
		w.line("")
		used[d.Slot] = true
	}
	if len(dynamic) < DynamicCapacity {
		w.line("# Empty reserved binds for dynamic chat/connection commands")
		for slot := DynamicStart; slot <= DynamicEnd; slot++ {
			if used[slot] {
				continue
			}
			w.line("# Reserved bind no.%d", slot)
			w.bind(slot, `""`)
		}
		w.line("")
	}
	w.line("")
	w.line(actionsEnd)
	return w.buf.Bytes()
}
