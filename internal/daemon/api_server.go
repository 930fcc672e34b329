package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"rustactions/internal/config"
	"rustactions/internal/dispatch"
	"rustactions/internal/logging"
	"rustactions/internal/services"
)

// maxBodyBytes bounds request bodies; item imports are the largest.
const maxBodyBytes = 8 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	mux := http.NewServeMux()
	srv.routes(mux)
	srv.handler = srv.recoverMiddleware(srv.requestMiddleware(authMiddleware(cfg.Paths.APIToken, mux)))
	return srv
}

func (s *apiServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/actions", s.handleActions)
	mux.HandleFunc("/actions/{name}", s.handleActionByName)
	for path, action := range actionRoutes {
		mux.HandleFunc(path, s.actionHandler(action))
	}
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/anti-afk", s.taskHandler(dispatch.TaskAntiAFK))
	mux.HandleFunc("/tasks/continuous-stack", s.taskHandler(dispatch.TaskContinuousStack))

	mux.HandleFunc("/items", s.handleItems)
	mux.HandleFunc("/items/{id}", s.handleItem)
	mux.HandleFunc("/items/category/{category}", s.handleItemsByCategory)
	mux.HandleFunc("/items/search", s.handleItemSearch)
	mux.HandleFunc("/items/categories", s.handleCategories)
	mux.HandleFunc("/items/stats", s.handleItemStats)
	mux.HandleFunc("/recipes/merge", s.handleRecipeMerge)

	mux.HandleFunc("/steam/login", s.handleSteamLogin)
	mux.HandleFunc("/steam/logout", s.handleSteamLogout)
	mux.HandleFunc("/steam/sync", s.handleSteamSync)
	mux.HandleFunc("/steam/reset-database", s.handleSteamReset)
	mux.HandleFunc("/steam/status", s.handleSteamStatus)
	mux.HandleFunc("/steam/test-installation", s.handleSteamTest)
	mux.HandleFunc("/steam/images/{file}", s.handleSteamImage)

	mux.HandleFunc("/binds", s.handleBinds)
	mux.HandleFunc("/binds/resolve/{action}", s.handleBindResolve)
	mux.HandleFunc("/binds/clear-cache", s.handleBindsClearCache)
	mux.HandleFunc("/binds/reload", s.handleBindsReload)
	mux.HandleFunc("/binds/regenerate", s.handleBindsRegenerate)
	mux.HandleFunc("/binds/generate", s.handleBindsGenerate)

	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/ws/events", s.handleEvents)
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "api", "listen", "paths.api_bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener, s.server = listener, server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server, s.listener = nil, nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

// Addr returns the bound address once listening.
func (s *apiServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// allow writes a 405 unless r uses one of methods.
func (s *apiServer) allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeBody decodes a JSON object body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return services.Validation("api", "invalid JSON body: "+err.Error())
	}
	if dec.More() {
		return services.Validation("api", "invalid JSON body: trailing data")
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr renders err with the status its marker maps to.
func (s *apiServer) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Warn("request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.Int("status", status),
			logging.String(logging.FieldErrorHint, "see daemon log for details"),
		)
	}
	s.writeError(w, status, services.Message(err))
}

// writeSuccess renders the success envelope.
func (s *apiServer) writeSuccess(w http.ResponseWriter, status int, action, message string, fields map[string]any) {
	s.writeJSON(w, status, dispatch.Result{Success: true, Action: action, Message: message, Fields: fields})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeSuccess(w, http.StatusOK, "health", "rustactions daemon is running", map[string]any{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}
