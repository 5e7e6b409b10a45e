package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mateconpizza/bmd/internal/bookmark"
	"github.com/mateconpizza/bmd/internal/db"
)

// error payload strings.
const (
	mesgUnauthorized  = "Unauthorized"
	mesgMissingFields = "Missing required fields"
	mesgURLExists     = "URL already exists"
	mesgNotFound      = "Bookmark not found"
	mesgURLDeleted    = "URL deleted"
)

// mutateRequest is the body of the create and update endpoints. Delete sends
// only id and secret.
type mutateRequest struct {
	ID          int      `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Secret      string   `json:"secret"`
}

// tagResponse is one row of the tag listing. ID is a presentational
// sequence assigned per response, it is not persisted and not stable across
// calls.
type tagResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// handleBookmarks lists bookmarks, optionally filtered by tags with AND/OR
// logic, newest first.
func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	names := splitTagsParam(r.URL.Query().Get("tags"))
	logic := db.ParseLogic(r.URL.Query().Get("logic"))

	bs, err := s.store.ByTags(r.Context(), names, logic)
	if err != nil {
		slog.Error("listing bookmarks", "error", err)
		encodeErr(w, http.StatusInternalServerError, err.Error())

		return
	}

	out := make([]*bookmark.BookmarkJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.JSON())
	}

	encodeJSON(w, http.StatusOK, out)
}

// handleTags lists every distinct tag name with its bookmark count, ordered
// by count descending.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.TagsCounter(r.Context())
	if err != nil {
		slog.Error("listing tags", "error", err)
		encodeErr(w, http.StatusInternalServerError, err.Error())

		return
	}

	out := make([]tagResponse, 0, len(counts))
	for i, tc := range counts {
		out = append(out, tagResponse{ID: i + 1, Name: tc.Name, Count: tc.Count})
	}

	encodeJSON(w, http.StatusOK, out)
}

// handleCreate creates a bookmark with its tags.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeMutation(w, r)
	if !ok {
		return
	}

	if req.URL == "" {
		encodeErr(w, http.StatusBadRequest, mesgMissingFields)
		return
	}

	b := bookmark.New()
	b.URL = req.URL
	b.Title = req.Title
	b.Desc = req.Description

	if err := s.store.InsertOne(r.Context(), b, req.Tags); err != nil {
		s.mutationErr(w, "creating bookmark", err)
		return
	}

	encodeJSON(w, http.StatusCreated, submittedJSON(b, req.Tags))
}

// handleUpdate updates a bookmark's fields and reconciles its tags.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeMutation(w, r)
	if !ok {
		return
	}

	if req.URL == "" {
		encodeErr(w, http.StatusBadRequest, mesgMissingFields)
		return
	}

	if req.ID < 1 {
		encodeErr(w, http.StatusBadRequest, mesgMissingFields)
		return
	}

	b := bookmark.New()
	b.ID = req.ID
	b.URL = req.URL
	b.Title = req.Title
	b.Desc = req.Description

	if err := s.store.UpdateOne(r.Context(), b, req.Tags); err != nil {
		s.mutationErr(w, "updating bookmark", err)
		return
	}

	encodeJSON(w, http.StatusOK, submittedJSON(b, req.Tags))
}

// handleDelete removes a bookmark and all of its tags.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeMutation(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteOne(r.Context(), req.ID); err != nil {
		s.mutationErr(w, "deleting bookmark", err)
		return
	}

	encodeJSON(w, http.StatusOK, map[string]string{"message": mesgURLDeleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	encodeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeMutation decodes a mutation body and checks the shared secret. A
// malformed body, including a non-numeric id, is a validation error. The
// response is already written when ok is false.
func (s *Server) decodeMutation(w http.ResponseWriter, r *http.Request) (*mutateRequest, bool) {
	defer func() {
		if err := r.Body.Close(); err != nil {
			slog.Error("closing request body", "error", err)
		}
	}()

	req := &mutateRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		encodeErr(w, http.StatusBadRequest, mesgMissingFields)
		return nil, false
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.cfg.Secret)) != 1 {
		encodeErr(w, http.StatusUnauthorized, mesgUnauthorized)
		return nil, false
	}

	return req, true
}

// mutationErr maps storage errors to their HTTP status.
func (s *Server) mutationErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, db.ErrRecordDuplicate):
		encodeErr(w, http.StatusBadRequest, mesgURLExists)
	case errors.Is(err, db.ErrRecordNotFound):
		encodeErr(w, http.StatusNotFound, mesgNotFound)
	case errors.Is(err, bookmark.ErrURLEmpty), errors.Is(err, bookmark.ErrInvalidID):
		encodeErr(w, http.StatusBadRequest, mesgMissingFields)
	default:
		slog.Error(op, "error", err)
		encodeErr(w, http.StatusInternalServerError, err.Error())
	}
}

// submittedJSON returns the wire form of b with the tags exactly as
// submitted, matching what mutation responses echo back.
func submittedJSON(b *bookmark.Bookmark, tags []string) *bookmark.BookmarkJSON {
	out := b.JSON()
	if tags == nil {
		tags = []string{}
	}

	out.Tags = tags

	return out
}

// splitTagsParam splits the comma-separated tags query parameter, dropping
// empty entries.
func splitTagsParam(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}

	return names
}
