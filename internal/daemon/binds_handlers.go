package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"rustactions/internal/events"
	"rustactions/internal/history"
	"rustactions/internal/keybinds"
	"rustactions/internal/services"
)

func (s *apiServer) handleBinds(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	binds := s.daemon.deps.Binds
	s.writeJSON(w, http.StatusOK, map[string]any{
		"summary":       binds.Summary(),
		"api_commands":  keybinds.APICommands(),
		"craft_binds":   binds.CraftBinds(),
		"dynamic_binds": binds.DynamicBinds(),
	})
}

func (s *apiServer) handleBindResolve(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	action := strings.TrimSpace(r.PathValue("action"))
	combo, err := s.daemon.deps.Binds.Resolve(action)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"action": action, "combo": combo})
}

func (s *apiServer) handleBindsClearCache(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	n := s.daemon.deps.Binds.ClearCache()
	s.writeSuccess(w, http.StatusOK, "binds_clear_cache", "cleared "+strconv.Itoa(n)+" cached resolutions", map[string]any{"cleared": n})
}

func (s *apiServer) handleBindsReload(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	n, err := s.daemon.deps.Binds.ReloadDynamicBinds()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.bindsChanged("reload")
	s.writeSuccess(w, http.StatusOK, "binds_reload", "loaded "+strconv.Itoa(n)+" dynamic binds", map[string]any{"dynamic_binds": n})
}

func (s *apiServer) handleBindsRegenerate(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	if err := s.daemon.deps.Binds.RegenerateCleared(); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.bindsChanged("regenerate")
	s.writeSuccess(w, http.StatusOK, "binds_regenerate", "dynamic binds cleared and keys.cfg rewritten", map[string]any{"summary": s.daemon.deps.Binds.Summary()})
}

func (s *apiServer) handleBindsGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	n, err := s.daemon.RegenerateCraftBinds()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "binds_generate", "generated "+strconv.Itoa(n)+" craft binds", map[string]any{"craft_binds": n})
}

func (s *apiServer) bindsChanged(op string) {
	s.daemon.deps.Events.Publish(events.TypeBinds, map[string]any{"op": op, "summary": s.daemon.deps.Binds.Summary()})
}

// handleHistory lists or clears the action log. With history disabled the
// list is always empty.
func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	store := s.daemon.deps.History
	if r.Method == http.MethodDelete {
		if store == nil {
			s.writeError(w, http.StatusNotFound, "history is disabled")
			return
		}
		n, err := store.Clear(r.Context())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		s.writeSuccess(w, http.StatusOK, "history_clear", "history cleared", map[string]any{"deleted": n})
		return
	}

	filter := history.Filter{Action: strings.TrimSpace(r.URL.Query().Get("action"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.writeErr(w, r, services.Validation("api", "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}
	if store == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "entries": []history.Entry{}})
		return
	}
	entries, err := store.List(r.Context(), filter)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "entries": entries})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.daemon.deps.Events.ServeWS(w, r)
}
