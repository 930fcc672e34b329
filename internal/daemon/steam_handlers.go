package daemon

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rustactions/internal/services"
	"rustactions/internal/steam"
)

func (s *apiServer) handleSteamLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var creds steam.Credentials
	if err := decodeBody(r, &creds); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if strings.TrimSpace(creds.Username) == "" {
		creds.Username = s.daemon.cfg.Steam.Username
	}
	session, err := s.daemon.deps.Steam.Login(r.Context(), creds)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "steam_login", "logged in as "+session.Username, map[string]any{"session": session})
}

func (s *apiServer) handleSteamLogout(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	if err := s.daemon.deps.Steam.Logout(); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "steam_logout", "logged out", nil)
}

// handleSteamSync blocks until the sync finishes, so the server write
// deadline is lifted for this request. A client that disconnects does not
// abort the sync.
func (s *apiServer) handleSteamSync(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	result, err := s.daemon.SyncDetached(r.Context())
	if err != nil {
		if services.IsState(err) {
			s.writeSuccess(w, http.StatusOK, "steam_sync", services.Message(err), map[string]any{"syncing": true})
			return
		}
		status := services.HTTPStatus(err)
		s.writeJSON(w, status, map[string]any{"error": services.Message(err), "result": result})
		return
	}
	s.writeSuccess(w, http.StatusOK, "steam_sync",
		fmt.Sprintf("synced %d items and %d images", result.ItemsFetched, result.ImagesFetched),
		map[string]any{"result": result})
}

func (s *apiServer) handleSteamReset(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	if err := s.daemon.deps.Steam.ResetDatabase(); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if _, err := s.daemon.RegenerateCraftBinds(); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "steam_reset_database", "item database reset", nil)
}

func (s *apiServer) handleSteamStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	st, err := s.daemon.deps.Steam.Status()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "steam_status", "", map[string]any{"status": st})
}

func (s *apiServer) handleSteamTest(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	inst := s.daemon.deps.Steam.TestInstallation(r.Context())
	if inst.Error != "" {
		s.writeJSON(w, http.StatusOK, map[string]any{"success": false, "action": "steam_test_installation", "message": inst.Error, "installation": inst})
		return
	}
	s.writeSuccess(w, http.StatusOK, "steam_test_installation", "steamcmd is usable", map[string]any{"installation": inst})
}

// handleSteamImage serves an item image copied during sync.
func (s *apiServer) handleSteamImage(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	name := r.PathValue("file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".png") {
		s.writeErr(w, r, services.Validation("api", "invalid image name"))
		return
	}
	path := filepath.Join(s.daemon.cfg.ImagesDir(), name)
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, "image "+name+" not found")
		return
	}
	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeFile(w, r, path)
}
