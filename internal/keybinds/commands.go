package keybinds

import (
	"fmt"
	"strings"
)

// APICommand is a static console command bound in the API range.
type APICommand struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Slot    int    `json:"slot"`
	Combo   string `json:"combo"`
}

func feedback(text string) string {
	return fmt.Sprintf(`chat.add 0 0 "%s"`, text)
}

// apiCommands fixes the API range layout: the i-th entry is bound to slot
// APIStart+i. Append only; reordering shifts every bind after the change.
var apiCommands = []struct {
	name    string
	command string
}{
	{"kill", "kill"},
	{"respawn", "respawn"},
	{"autorun", "forward;sprint;" + feedback("Auto run enabled!")},
	{"autorun_jump", "forward;sprint;jump;" + feedback("Auto run and jump enabled!")},
	{"crouch_attack", "attack;duck;" + feedback("Auto crouch and attack enabled!")},
	{"quit_game", "quit"},
	{"disconnect", "disconnect"},
	{"lookat_radius_20", "client.lookatradius 20;" + feedback("Look radius set to wide (20)")},
	{"lookat_radius_0", "client.lookatradius 0.0002;" + feedback("Look radius set to narrow (0.0002)")},
	{"audio_voices_0", "audio.voices 0;" + feedback("Voice volume set to 0%")},
	{"audio_voices_25", "audio.voices 0.25;" + feedback("Voice volume set to 25%")},
	{"audio_voices_50", "audio.voices 0.5;" + feedback("Voice volume set to 50%")},
	{"audio_voices_75", "audio.voices 0.75;" + feedback("Voice volume set to 75%")},
	{"audio_voices_100", "audio.voices 1;" + feedback("Voice volume set to 100%")},
	{"audio_master_0", "audio.master 0;" + feedback("Master volume set to 0%")},
	{"audio_master_25", "audio.master 0.25;" + feedback("Master volume set to 25%")},
	{"audio_master_50", "audio.master 0.5;" + feedback("Master volume set to 50%")},
	{"audio_master_75", "audio.master 0.75;" + feedback("Master volume set to 75%")},
	{"audio_master_100", "audio.master 1;" + feedback("Master volume set to 100%")},
	{"hud_off", "graphics.hud 0"},
	{"hud_on", "graphics.hud 1"},
	{"gesture_wave", "gesture wave"},
	{"gesture_victory", "gesture victory"},
	{"gesture_shrug", "gesture shrug"},
	{"gesture_thumbsup", "gesture thumbsup"},
	{"gesture_hurry", "gesture hurry"},
	{"gesture_ok", "gesture ok"},
	{"gesture_thumbsdown", "gesture thumbsdown"},
	{"gesture_clap", "gesture clap"},
	{"gesture_point", "gesture point"},
	{"gesture_friendly", "gesture friendly"},
	{"gesture_cabbagepatch", "gesture cabbagepatch"},
	{"gesture_twist", "gesture twist"},
	{"gesture_raisetheroof", "gesture raisetheroof"},
	{"gesture_beatchest", "gesture beatchest"},
	{"gesture_throatcut", "gesture throatcut"},
	{"gesture_fingergun", "gesture fingergun"},
	{"gesture_shush", "gesture shush"},
	{"gesture_shush_vocal", "gesture shush_vocal"},
	{"gesture_watchingyou", "gesture watchingyou"},
	{"gesture_loser", "gesture loser"},
	{"gesture_nono", "gesture nono"},
	{"gesture_knucklescrack", "gesture knucklescrack"},
	{"gesture_rps", "gesture rps"},
	{"noclip_true", "noclip true;" + feedback("Noclip enabled!")},
	{"noclip_false", "noclip false;" + feedback("Noclip disabled!")},
	{"global_god_true", "global.god true;" + feedback("God mode enabled!")},
	{"global_god_false", "global.god false;" + feedback("God mode disabled!")},
	{"env_time_0", "env.time 0;" + feedback("Time set to 00:00 (midnight)")},
	{"env_time_4", "env.time 4;" + feedback("Time set to 04:00 (early morning)")},
	{"env_time_8", "env.time 8;" + feedback("Time set to 08:00 (morning)")},
	{"env_time_12", "env.time 12;" + feedback("Time set to 12:00 (noon)")},
	{"env_time_16", "env.time 16;" + feedback("Time set to 16:00 (afternoon)")},
	{"env_time_20", "env.time 20;" + feedback("Time set to 20:00 (evening)")},
	{"env_time_24", "env.time 24;" + feedback("Time set to 24:00 (midnight)")},
	{"teleport2marker", "teleport2marker;" + feedback("Teleported to marker!")},
	{"combatlog", "combatlog"},
	{"console_clear", "console.clear"},
	{"consoletoggle", "consoletoggle"},
	{"chat_continuous_stack_enabled", feedback("Continuous stack inventory enabled!")},
	{"chat_continuous_stack_disabled", feedback("Continuous stack inventory disabled!")},
	{"chat_anti_afk_started", feedback("Anti-AFK started!")},
	{"chat_anti_afk_stopped", feedback("Anti-AFK stopped!")},
	{"cancel_all_crafting", "craft.cancelall;" + feedback("All crafting cancelled!")},
	{"ent_kill", "ent kill;" + feedback("Entity killed!")},
	{"chat_items_stacked", feedback("Inventory stacked!")},
	{"chat_hud_on", feedback("HUD enabled!")},
	{"chat_type_entered", feedback("Text entered!")},
}

var apiSlots = func() map[string]int {
	slots := make(map[string]int, len(apiCommands))
	for i, cmd := range apiCommands {
		slots[cmd.name] = APIStart + i
	}
	return slots
}()

// APICommands returns the static API table with resolved slots.
func APICommands() []APICommand {
	out := make([]APICommand, len(apiCommands))
	for i, cmd := range apiCommands {
		slot := APIStart + i
		combo, _ := ComboForSlot(slot)
		out[i] = APICommand{Name: cmd.name, Command: cmd.command, Slot: slot, Combo: combo}
	}
	return out
}

// APISlot returns the slot of a named API command.
func APISlot(name string) (int, bool) {
	slot, ok := apiSlots[name]
	return slot, ok
}

// Dynamic bind kinds.
const (
	KindChatSay       = "chat_say"
	KindChatTeamSay   = "chat_teamsay"
	KindConnect       = "client_connect"
	KindRespawnBag    = "respawn_sleepingbag"
	KindInventoryGive = "inventory_give"
	KindCraftAdd      = "craft_add"
	KindCraftCancel   = "craft_cancel"
)

var dynamicTemplates = map[string]func(value string) string{
	KindChatSay:       func(v string) string { return fmt.Sprintf(`chat.say "%s"`, quoteSafe(v)) },
	KindChatTeamSay:   func(v string) string { return fmt.Sprintf(`chat.teamsay "%s"`, quoteSafe(v)) },
	KindConnect:       func(v string) string { return "disconnect;client.connect " + v },
	KindRespawnBag:    func(v string) string { return "respawn_sleepingbag " + v },
	KindInventoryGive: func(v string) string { return v },
	KindCraftAdd:      func(v string) string { return "craft.add " + v },
	KindCraftCancel:   func(v string) string { return "craft.cancel " + v },
}

// DynamicCommand renders the console command for a dynamic bind.
func DynamicCommand(kind, value string) (string, bool) {
	tmpl, ok := dynamicTemplates[kind]
	if !ok {
		return "", false
	}
	return tmpl(value), true
}

// quoteSafe keeps a chat message inside its surrounding double quotes.
func quoteSafe(v string) string {
	return strings.ReplaceAll(v, `"`, "'")
}

// Action names accepted by Manager.Resolve besides API command names.
const (
	craftPrefix   = "craft:"
	cancelPrefix  = "cancel:"
	dynamicPrefix = "dynamic:"
	slotPrefix    = "slot:"
)

// CraftAction names the craft bind of an item.
func CraftAction(itemID string) string { return craftPrefix + itemID }

// CancelAction names the cancel-craft bind of an item.
func CancelAction(itemID string) string { return cancelPrefix + itemID }

// DynamicAction names an assigned dynamic bind.
func DynamicAction(kind, value string) string { return dynamicPrefix + dynamicKey(kind, value) }

func dynamicKey(kind, value string) string { return kind + ":" + value }
