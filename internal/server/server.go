// Package server exposes the clip store daemon over HTTP: a JSON command API
// and a websocket that pushes history events.
package server

import (
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ClipService is the command surface the HTTP API is backed by.
type ClipService interface {
	ListRecent(ctx context.Context, limit int) ([]types.Clip, error)
	SetPinned(ctx context.Context, id int64, pinned bool) (*types.Clip, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	CaptureCurrent(ctx context.Context) (*types.Clip, error)
	IgnoreNext(content string)
	RegisterHandler(handler service.EventHandler)
}

type Server struct {
	clipService ClipService
	hub         *Hub
	srv         *http.Server
	listener    net.Listener
	config      Config
}

type Config struct {
	Addr           string        // host:port to listen on
	RequestTimeout time.Duration // Per request bound for the command API
}

func New(clipService ClipService, config Config) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		clipService: clipService,
		hub:         newHub(),
		config:      config,
	}
	go s.hub.run()
	clipService.RegisterHandler(s.hub)
	return s
}

// Handler returns the daemon's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// The push socket outlives any request timeout
	r.Get("/ws", s.serveWs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.config.RequestTimeout))

		r.Get("/status", s.handleStatus)
		r.Route("/api", func(r chi.Router) {
			r.Get("/clips", s.handleGetClips)
			r.Delete("/clips", s.handleClearClips)
			r.Post("/clips/capture", s.handleCapture)
			r.Post("/clips/{id}/pin", s.handleSetPinned)
			r.Delete("/clips/{id}", s.handleDeleteClip)
			r.Post("/ignore", s.handleIgnore)
		})
	})

	return r
}

// Start listens on the configured address, falling back to the loopback IP
// when a "localhost" address cannot be bound.
func (s *Server) Start() error {
	addresses := []string{s.config.Addr}
	if host, port, err := net.SplitHostPort(s.config.Addr); err == nil && host == "localhost" {
		addresses = append(addresses, net.JoinHostPort("127.0.0.1", port))
	}

	var lastErr error
	for _, addr := range addresses {
		slog.Info("attempting to start HTTP server", "addr", addr)

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			slog.Warn("failed to start server", "addr", addr, "error", err)
			continue
		}

		s.listener = ln
		s.srv = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "addr", ln.Addr().String(), "error", err)
			}
		}()

		slog.Info("server started", "addr", ln.Addr().String())
		return nil
	}

	return fmt.Errorf("failed to start server on any address: %w", lastErr)
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() error {
	s.hub.stop()
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"addr":    s.Addr(),
		"clients": strconv.Itoa(s.hub.count()),
	})
}

func (s *Server) handleGetClips(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	clips, err := s.clipService.ListRecent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clips)
}

func (s *Server) handleSetPinned(w http.ResponseWriter, r *http.Request) {
	id, ok := clipID(w, r)
	if !ok {
		return
	}

	var body struct {
		IsPinned *bool `json:"is_pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsPinned == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"is_pinned\": bool}")
		return
	}

	clip, err := s.clipService.SetPinned(r.Context(), id, *body.IsPinned)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	id, ok := clipID(w, r)
	if !ok {
		return
	}

	if err := s.clipService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearClips(w http.ResponseWriter, r *http.Request) {
	if err := s.clipService.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	clip, err := s.clipService.CaptureCurrent(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if clip == nil {
		// Nothing on the clipboard
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, clip)
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"content\": string}")
		return
	}

	s.clipService.IgnoreNext(body.Content)
	w.WriteHeader(http.StatusNoContent)
}

func clipID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid clip id")
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrContentTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
