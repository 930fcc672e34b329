package daemon

import (
	"net/http"

	"rustactions/internal/dispatch"
	"rustactions/internal/events"
)

// actionRoutes maps POST endpoints to dispatcher actions.
var actionRoutes = map[string]string{
	"/craft/id":                  "craft_by_id",
	"/craft/name":                "craft_by_name",
	"/craft/cancel/id":           "cancel_craft_by_id",
	"/craft/cancel/name":         "cancel_craft_by_name",
	"/craft/cancel-all":          "cancel_all_crafting",
	"/player/suicide":            "suicide",
	"/player/respawn":            "respawn",
	"/player/auto-run":           "auto_run",
	"/player/auto-run-jump":      "auto_run_jump",
	"/player/auto-crouch-attack": "auto_crouch_attack",
	"/player/noclip":             "noclip",
	"/player/god-mode":           "god_mode",
	"/player/gesture":            "gesture",
	"/player/teleport-marker":    "teleport_to_marker",
	"/chat/global":               "chat_global",
	"/chat/team":                 "chat_team",
	"/game/quit":                 "quit_game",
	"/game/disconnect":           "disconnect",
	"/game/connect":              "connect",
	"/game/time":                 "set_time",
	"/game/combat-log":           "combat_log",
	"/game/kill-entity":          "kill_entity",
	"/inventory/stack":           "stack_inventory",
	"/settings/look-radius":      "set_look_radius",
	"/settings/voice-volume":     "set_voice_volume",
	"/settings/master-volume":    "set_master_volume",
	"/settings/hud":              "set_hud_state",
	"/clipboard/copy-json":       "copy_json_to_clipboard",
	"/input/type-enter":          "type_and_enter",
}

func (s *apiServer) actionHandler(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(w, r, http.MethodPost) {
			return
		}
		s.execute(w, r, action)
	}
}

func (s *apiServer) execute(w http.ResponseWriter, r *http.Request, action string) {
	params := dispatch.Params{}
	if err := decodeBody(r, &params); err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.daemon.deps.Dispatcher.Execute(r.Context(), action, params)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *apiServer) handleActions(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	specs := s.daemon.deps.Dispatcher.Actions()
	s.writeSuccess(w, http.StatusOK, "list_actions", "", map[string]any{"actions": specs, "gestures": dispatch.Gestures()})
}

// handleActionByName executes any registered action; the CLI uses it
// instead of the per-action paths.
func (s *apiServer) handleActionByName(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	s.execute(w, r, r.PathValue("name"))
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeSuccess(w, http.StatusOK, "list_tasks", "", map[string]any{"tasks": s.daemon.deps.Dispatcher.Tasks().Statuses()})
}

// taskHandler reports a periodic task on GET and starts or stops it on POST.
func (s *apiServer) taskHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		task, ok := s.daemon.deps.Dispatcher.Tasks().Get(name)
		if !ok {
			s.writeError(w, http.StatusNotFound, "unknown task "+name)
			return
		}
		if r.Method == http.MethodGet {
			st := task.Status()
			s.writeSuccess(w, http.StatusOK, name, st.State, map[string]any{"running": st.Running, "task": st})
			return
		}
		s.execute(w, r, name)
		s.daemon.deps.Events.Publish(events.TypeTask, task.Status())
	}
}
