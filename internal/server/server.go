// Package server exposes the bookmark store over an HTTP JSON API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mateconpizza/bmd/internal/config"
	"github.com/mateconpizza/bmd/internal/db"
)

// Server routes API requests to the bookmark store.
type Server struct {
	cfg   *config.Config
	store *db.SQLite
	mux   *chi.Mux
}

// New builds the router with its middleware and routes, mounted under the
// configured prefix.
func New(cfg *config.Config, store *db.SQLite) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
	}

	api := chi.NewRouter()
	api.Get("/bookmarks", s.handleBookmarks)
	api.Get("/tags", s.handleTags)
	api.Post("/create", s.handleCreate)
	api.Post("/update", s.handleUpdate)
	api.Post("/delete", s.handleDelete)
	api.Get("/health", s.handleHealth)

	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.RealIP)
	root.Use(logRequests)
	root.Use(middleware.Recoverer)
	root.Use(corsHeaders)
	root.Mount(s.cfg.Prefix, api)

	s.mux = root

	return s
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// logRequests logs every request with its status and duration.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsHeaders allows cross-origin browser clients, same as the front end the
// API was built for.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// encodeJSON writes v as a JSON response with the given status code.
func encodeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// encodeErr writes an error payload with the given status code.
func encodeErr(w http.ResponseWriter, code int, mesg string) {
	encodeJSON(w, code, map[string]string{"error": mesg})
}
