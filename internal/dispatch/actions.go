package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"rustactions/internal/input"
	"rustactions/internal/items"
	"rustactions/internal/keybinds"
	"rustactions/internal/services"
)

// Periodic task names.
const (
	TaskAntiAFK         = "anti_afk"
	TaskContinuousStack = "continuous_stack"
)

const (
	defaultStackIterations = 100
	maxStackIterations     = 1000
	maxCraftQuantity       = 1000
	stackPause             = 10 * time.Millisecond
)

// stackItemIDs are the numeric ids crafted and cancelled to restack the
// inventory.
var stackItemIDs = []int64{-97956382, 1390353317, 15388698}

var validHours = []int{0, 4, 8, 12, 16, 20, 24}

// Gestures lists the gesture names accepted by the gesture action.
func Gestures() []string {
	var out []string
	for _, cmd := range keybinds.APICommands() {
		if name, ok := strings.CutPrefix(cmd.Name, "gesture_"); ok {
			out = append(out, name)
		}
	}
	return out
}

func quantityParam() ParamSpec {
	return ParamSpec{Name: "quantity", Type: TypeInt, Help: "number to queue, 1-1000 (default 1)"}
}

func enableParam(name string) []ParamSpec {
	return []ParamSpec{{Name: name, Type: TypeBool, Required: true}}
}

// simple binds a parameterless action to one API command.
func simple(name, command, help, message string) ActionSpec {
	return ActionSpec{
		Name:  name,
		Help:  help,
		Input: true,
		run: func(ctx context.Context, d *Dispatcher, _ args) (Result, error) {
			focus, err := d.press(ctx, []string{command}, "")
			return Result{Message: message, Focus: focus}, err
		},
	}
}

// toggle binds a boolean action to an on/off API command pair.
func toggle(name, param, on, off, help, what string) ActionSpec {
	return ActionSpec{
		Name:   name,
		Help:   help,
		Params: enableParam(param),
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			enable, err := a.requireBool(param)
			if err != nil {
				return Result{}, err
			}
			command, state := off, "disabled"
			if enable {
				command, state = on, "enabled"
			}
			focus, err := d.press(ctx, []string{command}, "")
			return Result{
				Message: fmt.Sprintf("%s %s", what, state),
				Focus:   focus,
				Fields:  map[string]any{param: enable},
			}, err
		},
	}
}

var actionTable = []ActionSpec{
	{
		Name:   "craft_by_id",
		Help:   "queue crafts of an item by id",
		Params: []ParamSpec{{Name: "item_id", Type: TypeString, Required: true}, quantityParam()},
		Input:  true,
		run:    func(ctx context.Context, d *Dispatcher, a args) (Result, error) { return d.craftAction(ctx, a, false, false) },
	},
	{
		Name:   "craft_by_name",
		Help:   "queue crafts of an item by name",
		Params: []ParamSpec{{Name: "item_name", Type: TypeString, Required: true}, quantityParam()},
		Input:  true,
		run:    func(ctx context.Context, d *Dispatcher, a args) (Result, error) { return d.craftAction(ctx, a, true, false) },
	},
	{
		Name:   "cancel_craft_by_id",
		Help:   "cancel queued crafts of an item by id",
		Params: []ParamSpec{{Name: "item_id", Type: TypeString, Required: true}, quantityParam()},
		Input:  true,
		run:    func(ctx context.Context, d *Dispatcher, a args) (Result, error) { return d.craftAction(ctx, a, false, true) },
	},
	{
		Name:   "cancel_craft_by_name",
		Help:   "cancel queued crafts of an item by name",
		Params: []ParamSpec{{Name: "item_name", Type: TypeString, Required: true}, quantityParam()},
		Input:  true,
		run:    func(ctx context.Context, d *Dispatcher, a args) (Result, error) { return d.craftAction(ctx, a, true, true) },
	},
	simple("cancel_all_crafting", "cancel_all_crafting", "cancel the whole crafting queue", "All crafting cancelled"),
	{
		Name:   "set_time",
		Help:   "set the time of day (admin)",
		Params: []ParamSpec{{Name: "hour", Type: TypeInt, Required: true, Help: "one of 0, 4, 8, 12, 16, 20, 24"}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			hour, err := a.intIn("hour", 0, 0, 24)
			if err != nil {
				return Result{}, err
			}
			if !slices.Contains(validHours, hour) {
				return Result{}, invalid("hour must be one of 0, 4, 8, 12, 16, 20, 24")
			}
			focus, err := d.press(ctx, []string{fmt.Sprintf("env_time_%d", hour)}, "")
			return Result{Message: fmt.Sprintf("Time set to %02d:00", hour), Focus: focus, Fields: map[string]any{"hour": hour}}, err
		},
	},
	volumeAction("set_voice_volume", "audio_voices", "Voice"),
	volumeAction("set_master_volume", "audio_master", "Master"),
	{
		Name:   "set_look_radius",
		Help:   "set the look-at radius; 20 is wide, anything else narrow",
		Params: []ParamSpec{{Name: "radius", Type: TypeFloat, Required: true}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			radius, err := a.requireFloat("radius")
			if err != nil {
				return Result{}, err
			}
			if radius <= 0 {
				return Result{}, invalid("radius must be greater than 0")
			}
			command, label := "lookat_radius_0", "narrow"
			if radius == 20 {
				command, label = "lookat_radius_20", "wide"
			}
			focus, err := d.press(ctx, []string{command}, "")
			return Result{Message: "Look radius set to " + label, Focus: focus, Fields: map[string]any{"radius": radius}}, err
		},
	},
	toggle("noclip", "enable", "noclip_true", "noclip_false", "toggle noclip (admin)", "Noclip"),
	toggle("god_mode", "enable", "global_god_true", "global_god_false", "toggle god mode (admin)", "God mode"),
	{
		Name:   "set_hud_state",
		Help:   "show or hide the HUD",
		Params: enableParam("enabled"),
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			enabled, err := a.requireBool("enabled")
			if err != nil {
				return Result{}, err
			}
			command, fb, state := "hud_off", "", "disabled"
			if enabled {
				command, fb, state = "hud_on", "chat_hud_on", "enabled"
			}
			focus, err := d.press(ctx, []string{command}, fb)
			return Result{Message: "HUD " + state, Focus: focus, Fields: map[string]any{"enabled": enabled}}, err
		},
	},
	simple("suicide", "kill", "kill the player character", "Player killed"),
	{
		Name:   "respawn",
		Help:   "respawn, optionally at a sleeping bag",
		Params: []ParamSpec{{Name: "spawn_id", Type: TypeString, Help: "sleeping bag id"}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			spawnID := a.str("spawn_id")
			if spawnID == "" {
				focus, err := d.press(ctx, []string{"respawn"}, "")
				return Result{Message: "Respawned", Focus: focus}, err
			}
			if _, err := strconv.ParseInt(spawnID, 10, 64); err != nil {
				return Result{}, invalid("spawn_id must be numeric")
			}
			assignment, focus, err := d.pressDynamic(ctx, keybinds.KindRespawnBag, spawnID, "")
			return Result{
				Message: "Respawned at sleeping bag " + spawnID,
				Focus:   focus,
				Fields:  map[string]any{"spawn_id": spawnID, "bind_slot": assignment.Slot},
			}, err
		},
	},
	simple("auto_run", "autorun", "run forward continuously", "Auto run enabled"),
	simple("auto_run_jump", "autorun_jump", "run forward and jump continuously", "Auto run and jump enabled"),
	simple("auto_crouch_attack", "crouch_attack", "hold crouch and attack", "Auto crouch and attack enabled"),
	simple("quit_game", "quit_game", "quit the game", "Quitting game"),
	simple("disconnect", "disconnect", "disconnect from the server", "Disconnected"),
	simple("teleport_to_marker", "teleport2marker", "teleport to the map marker (admin)", "Teleported to marker"),
	simple("combat_log", "combatlog", "print the combat log to the console", "Combat log shown"),
	simple("kill_entity", "ent_kill", "kill the entity under the crosshair (admin)", "Entity killed"),
	{
		Name:   "gesture",
		Help:   "play a gesture",
		Params: []ParamSpec{{Name: "name", Type: TypeString, Required: true}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			name, err := a.requireString("name")
			if err != nil {
				return Result{}, err
			}
			name = strings.ToLower(name)
			if !slices.Contains(Gestures(), name) {
				return Result{}, invalid("unknown gesture %q", name)
			}
			focus, err := d.press(ctx, []string{"gesture_" + name}, "")
			return Result{Message: "Gesture " + name, Focus: focus, Fields: map[string]any{"name": name}}, err
		},
	},
	chatAction("chat_global", keybinds.KindChatSay, "global"),
	chatAction("chat_team", keybinds.KindChatTeamSay, "team"),
	{
		Name:   "connect",
		Help:   "connect to a server",
		Params: []ParamSpec{{Name: "server_ip", Type: TypeString, Required: true, Help: "host[:port]"}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			addr, err := a.requireString("server_ip")
			if err != nil {
				return Result{}, err
			}
			if err := validateServerAddress(addr); err != nil {
				return Result{}, err
			}
			assignment, focus, err := d.pressDynamic(ctx, keybinds.KindConnect, addr, "")
			return Result{
				Message: "Connecting to server: " + addr,
				Focus:   focus,
				Fields:  map[string]any{"server_ip": addr, "bind_slot": assignment.Slot},
			}, err
		},
	},
	{
		Name:   "stack_inventory",
		Help:   "restack the inventory by queueing and cancelling crafts",
		Params: []ParamSpec{{Name: "iterations", Type: TypeInt, Help: "1-1000 (default 100)"}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			n, err := a.intIn("iterations", defaultStackIterations, 1, maxStackIterations)
			if err != nil {
				return Result{}, err
			}
			focus, err := d.stackBurst(ctx, n, true)
			return Result{Message: "Inventory stacked", Focus: focus, Fields: map[string]any{"iterations": n}}, err
		},
	},
	{
		Name:   "copy_json_to_clipboard",
		Help:   "copy a JSON value to the clipboard, indented",
		Params: []ParamSpec{{Name: "json_data", Type: TypeJSON, Required: true}},
		run: func(_ context.Context, d *Dispatcher, a args) (Result, error) {
			data, err := json.MarshalIndent(a.params["json_data"], "", "  ")
			if err != nil {
				return Result{}, invalid("json_data is not encodable: %v", err)
			}
			if err := d.clipboard.WriteAll(string(data)); err != nil {
				return Result{}, err
			}
			return Result{
				Message: fmt.Sprintf("Copied %d characters to clipboard", len(data)),
				Fields:  map[string]any{"length": len(data)},
			}, nil
		},
	},
	{
		Name:   "type_and_enter",
		Help:   "type text into the focused field and press Enter",
		Params: []ParamSpec{{Name: "text", Type: TypeString, Required: true}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			text, ok := a.params["text"].(string)
			if !ok || strings.TrimSpace(text) == "" {
				return Result{}, invalid("text is required")
			}
			fb, err := d.binds.Resolve("chat_type_entered")
			if err != nil {
				return Result{}, err
			}
			focus := d.focus(ctx)
			err = d.keyboard.Do(ctx, func(s *input.Sequence) error {
				if err := s.Type(text); err != nil {
					return err
				}
				if err := s.Submit(); err != nil {
					return err
				}
				return s.Combo(fb)
			})
			return Result{Message: "Text entered", Focus: focus, Fields: map[string]any{"length": len([]rune(text))}}, err
		},
	},
	taskAction(TaskAntiAFK, "chat_anti_afk_started", "chat_anti_afk_stopped", "Anti-AFK"),
	taskAction(TaskContinuousStack, "chat_continuous_stack_enabled", "chat_continuous_stack_disabled", "Continuous stack"),
}

func volumeAction(name, prefix, label string) ActionSpec {
	return ActionSpec{
		Name:   name,
		Help:   "set " + strings.ToLower(label) + " volume, 0.0-1.0 in quarter steps",
		Params: []ParamSpec{{Name: "volume", Type: TypeFloat, Required: true}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			volume, err := a.requireFloat("volume")
			if err != nil {
				return Result{}, err
			}
			if volume < 0 || volume > 1 {
				return Result{}, invalid("volume must be between 0.0 and 1.0")
			}
			pct := int(math.Round(volume*4)) * 25
			focus, err := d.press(ctx, []string{fmt.Sprintf("%s_%d", prefix, pct)}, "")
			return Result{
				Message: fmt.Sprintf("%s volume set to %d%%", label, pct),
				Focus:   focus,
				Fields:  map[string]any{"volume": float64(pct) / 100},
			}, err
		},
	}
}

func chatAction(name, kind, channel string) ActionSpec {
	return ActionSpec{
		Name:   name,
		Help:   "send a " + channel + " chat message",
		Params: []ParamSpec{{Name: "message", Type: TypeString, Required: true}},
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			msg, err := a.requireString("message")
			if err != nil {
				return Result{}, err
			}
			assignment, focus, err := d.pressDynamic(ctx, kind, msg, "")
			return Result{
				Message: fmt.Sprintf("Sent %s chat message", channel),
				Focus:   focus,
				Fields:  map[string]any{"chat_message": msg, "bind_slot": assignment.Slot},
			}, err
		},
	}
}

func taskAction(name, started, stopped, label string) ActionSpec {
	return ActionSpec{
		Name:   name,
		Help:   "start or stop the " + strings.ToLower(label) + " task",
		Params: enableParam("enable"),
		Input:  true,
		run: func(ctx context.Context, d *Dispatcher, a args) (Result, error) {
			enable, err := a.requireBool("enable")
			if err != nil {
				return Result{}, err
			}
			task, _ := d.tasks.Get(name)
			if enable {
				st, startedNow := task.Start(d.taskCtx)
				res := Result{Message: label + " already running", Fields: map[string]any{"running": true, "task": st}}
				if !startedNow {
					return res, nil
				}
				res.Message = label + " started"
				res.Focus, err = d.press(ctx, nil, started)
				if err != nil {
					// A task whose start could not be acknowledged in game is rolled back.
					st, _ = task.Stop()
					res.Message = label + " not started"
					res.Fields = map[string]any{"running": false, "task": st}
				}
				return res, err
			}
			st, err := task.Stop()
			if err != nil {
				return Result{Message: label + " not running", Fields: map[string]any{"running": false, "task": st}}, err
			}
			res := Result{Message: label + " stopped", Fields: map[string]any{"running": false, "task": st}}
			res.Focus, err = d.press(ctx, nil, stopped)
			return res, err
		},
	}
}

func validateServerAddress(addr string) error {
	if strings.ContainsAny(addr, " \t;\"'") {
		return invalid("server_ip must be host[:port]")
	}
	host := addr
	if strings.Contains(addr, ":") {
		h, port, err := net.SplitHostPort(addr)
		if err != nil {
			return invalid("server_ip must be host[:port]")
		}
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return invalid("server_ip port must be between 1 and 65535")
		}
		host = h
	}
	if host == "" {
		return invalid("server_ip host is required")
	}
	return nil
}

// lookupItem resolves the item named by item_id or item_name.
func (d *Dispatcher) lookupItem(a args, byName bool) (items.Record, error) {
	if !byName {
		id, err := a.requireString("item_id")
		if err != nil {
			return items.Record{}, err
		}
		return d.store.Get(id)
	}
	name, err := a.requireString("item_name")
	if err != nil {
		return items.Record{}, err
	}
	rec, ok := d.store.FindByName(name)
	if !ok {
		return items.Record{}, services.Wrap(services.ErrNotFound, "dispatch", "lookup item", fmt.Sprintf("no item named %q", name), nil)
	}
	return rec, nil
}

func (d *Dispatcher) craftAction(ctx context.Context, a args, byName, cancel bool) (Result, error) {
	qty, err := a.intIn("quantity", 1, 1, maxCraftQuantity)
	if err != nil {
		return Result{}, err
	}
	rec, err := d.lookupItem(a, byName)
	if err != nil {
		return Result{}, err
	}
	focus, err := d.craftItem(ctx, rec, qty, cancel)
	verb := "Crafting"
	if cancel {
		verb = "Cancelled"
	}
	return Result{
		Message: fmt.Sprintf("%s %dx %s", verb, qty, rec.Name),
		Focus:   focus,
		Fields:  map[string]any{"item_id": rec.ItemID, "item_name": rec.Name, "quantity": qty},
	}, err
}

// craftItem presses the item's static craft or cancel bind qty times. Items
// without a static bind fall back to a dynamic craft.add/craft.cancel bind
// carrying the quantity.
func (d *Dispatcher) craftItem(ctx context.Context, rec items.Record, qty int, cancel bool) (string, error) {
	if _, ok := d.binds.CraftBinding(rec.ItemID); ok {
		action := keybinds.CraftAction(rec.ItemID)
		if cancel {
			action = keybinds.CancelAction(rec.ItemID)
		}
		combo, err := d.binds.Resolve(action)
		if err != nil {
			return "", err
		}
		focus := d.focus(ctx)
		err = d.keyboard.Do(ctx, func(s *input.Sequence) error {
			for range qty {
				if err := s.Combo(combo); err != nil {
					return err
				}
			}
			return nil
		})
		return focus, err
	}
	if len(rec.Ingredients) == 0 || rec.NumericID == 0 {
		return "", invalid("item %q is not craftable", rec.ItemID)
	}
	kind := keybinds.KindCraftAdd
	if cancel {
		kind = keybinds.KindCraftCancel
	}
	_, focus, err := d.pressDynamic(ctx, kind, fmt.Sprintf("%d %d", rec.NumericID, qty), "")
	return focus, err
}

// stackCombos returns the craft combination of each stack item present in
// the item store.
func (d *Dispatcher) stackCombos() ([]string, error) {
	var combos []string
	for _, id := range stackItemIDs {
		rec, ok := d.store.FindByNumericID(id)
		if !ok {
			continue
		}
		combo, err := d.binds.Resolve(keybinds.CraftAction(rec.ItemID))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return nil, err
		}
		combos = append(combos, combo)
	}
	if len(combos) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "dispatch", "stack inventory", "no craft binds for the stack items; sync items and regenerate binds", nil)
	}
	return combos, nil
}

// stackBurst queues the stack items iterations times and then cancels the
// whole queue, refunding the ingredients into full stacks.
func (d *Dispatcher) stackBurst(ctx context.Context, iterations int, withFeedback bool) (string, error) {
	combos, err := d.stackCombos()
	if err != nil {
		return "", err
	}
	finish := []string{"cancel_all_crafting"}
	if withFeedback {
		finish = append(finish, "chat_items_stacked")
	}
	tail := make([]string, 0, len(finish))
	for _, action := range finish {
		combo, err := d.binds.Resolve(action)
		if err != nil {
			return "", err
		}
		tail = append(tail, combo)
	}
	focus := d.focus(ctx)
	// The keyboard is released between iterations so other actions are not
	// stuck behind a long burst.
	for i := range iterations {
		last := i == iterations-1
		err = d.keyboard.Do(ctx, func(s *input.Sequence) error {
			for _, combo := range combos {
				if err := s.Combo(combo); err != nil {
					return err
				}
			}
			if !last {
				return nil
			}
			for _, combo := range tail {
				if err := s.Combo(combo); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil && !last {
			err = pause(ctx, stackPause)
		}
		if err != nil {
			if ctx.Err() != nil {
				// Stopped mid-burst: drop whatever is still queued.
				_ = d.keyboard.Do(context.WithoutCancel(ctx), func(s *input.Sequence) error {
					return s.Combo(tail[0])
				})
			}
			return focus, err
		}
	}
	return focus, nil
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) antiAFKTick(ctx context.Context) error {
	return d.keyboard.Tap(ctx, "space")
}

func (d *Dispatcher) stackTick(ctx context.Context) error {
	_, err := d.stackBurst(ctx, d.settings.StackIterations, false)
	return err
}
