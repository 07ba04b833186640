// Package httpapi exposes the core's image endpoint and the dashboard
// view projection over HTTP. The broader UI surface (web sockets, full
// REST) lives elsewhere; this router carries only the image endpoint and
// a few read-only JSON projections.
package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jellywatch/core/internal/core"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/logging"
)

// Server serves the HTTP surface over one Core.
type Server struct {
	core   *core.Core
	logger *logging.Logger
}

// NewServer creates an HTTP server over c.
func NewServer(c *core.Core, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{core: c, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/image/{hint}/*", s.handleImage)
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/pending", s.handlePending)
	r.Get("/errors", s.handleErrors)

	return r
}

// handleImage serves GET /image/{hint}/{image-ref}: hint is
// `original | fit-WxH | fill-WxH`, the trailing path is the
// `provider:relpath` image-ref form.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	hint := chi.URLParam(r, "hint")
	refStr := chi.URLParam(r, "*")

	ref, err := id.ParseImageRef(refStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := s.core.LoadImage(r.Context(), ref, hint)
	if err != nil {
		s.logger.Warn("httpapi", "image load failed", logging.F("ref", ref.Display()), logging.F("error", err.Error()))
		status := http.StatusBadGateway
		if errors.Is(err, core.ErrBadHint) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", guessMIME(ref, hint, data))
	w.Write(data)
}

// guessMIME guesses the response content type: resized variants are always jpeg; originals go by
// the path's extension, falling back to content sniffing.
func guessMIME(ref id.ImageRef, hint string, data []byte) string {
	if hint != "original" {
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(filepath.Ext(ref.Path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.core.Dashboard())
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.core.Pending())
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		writeJSON(w, s.core.ErrorsByKey(key))
		return
	}
	writeJSON(w, s.core.Errors())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
