//nolint:funlen //test
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateconpizza/bmd/internal/bookmark"
	"github.com/mateconpizza/bmd/internal/config"
	"github.com/mateconpizza/bmd/internal/db"
)

const testSecret = "S"

func newTestServer(t *testing.T, prefix string) *Server {
	t.Helper()

	store, err := db.New(t.Context(), fmt.Sprintf("file:testsrv_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, err, "failed to open database")
	t.Cleanup(store.Close)

	cfg := &config.Config{Secret: testSecret, Prefix: prefix}

	return New(cfg, store)
}

// do sends a request with an optional JSON body and returns the recorder.
func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))

	return v
}

func createBody(url string, tags ...string) map[string]any {
	return map[string]any{
		"url":         url,
		"title":       "A",
		"description": "d",
		"tags":        tags,
		"secret":      testSecret,
	}
}

func TestCreateBookmark(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodPost, "/create", createBody("http://a.com", "go", "cli"))
	assert.Equal(t, http.StatusCreated, w.Code)

	got := decodeBody[bookmark.BookmarkJSON](t, w)
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, "http://a.com", got.URL)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, []string{"go", "cli"}, got.Tags, "mutation responses echo tags as submitted")
	assert.NotEmpty(t, got.DateCreated)

	// same url again is a conflict
	w = do(t, s, http.MethodPost, "/create", createBody("http://a.com", "other"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"error": "URL already exists"}, decodeBody[map[string]string](t, w))
}

func TestCreateUnauthorized(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	body := createBody("http://a.com")
	body["secret"] = "wrong"

	w := do(t, s, http.MethodPost, "/create", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, map[string]string{"error": "Unauthorized"}, decodeBody[map[string]string](t, w))
}

func TestCreateMissingURL(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodPost, "/create", map[string]any{"title": "A", "secret": testSecret})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"error": "Missing required fields"}, decodeBody[map[string]string](t, w))
}

func TestBookmarksRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodPost, "/create", createBody("http://a.com", "y", "x"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodGet, "/bookmarks", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[[]bookmark.BookmarkJSON](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"x", "y"}, got[0].Tags, "listing attaches tags sorted by name")
}

func TestBookmarksTagFilter(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodPost, "/create", createBody("http://a.com", "go", "cli"))
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"and all present", "tags=go,cli&logic=AND", 1},
		{"and default", "tags=go,cli", 1},
		{"and missing name", "tags=go,rust&logic=AND", 0},
		{"or one present", "tags=go,rust&logic=OR", 1},
		{"or lowercase", "tags=go,rust&logic=or", 1},
		{"bogus logic means and", "tags=go,rust&logic=bogus", 0},
		{"no filter", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, "/bookmarks?"+tt.query, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Len(t, decodeBody[[]bookmark.BookmarkJSON](t, w), tt.want)
		})
	}
}

func TestUpdateBookmark(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodPost, "/create", createBody("http://a.com", "a", "b", "c"))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[bookmark.BookmarkJSON](t, w)

	body := map[string]any{
		"id":          created.ID,
		"url":         "http://a.com",
		"title":       "Updated",
		"description": "new desc",
		"tags":        []string{"b", "c", "d"},
		"secret":      testSecret,
	}

	w = do(t, s, http.MethodPost, "/update", body)
	assert.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[bookmark.BookmarkJSON](t, w)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Updated", got.Title)
	assert.Equal(t, []string{"b", "c", "d"}, got.Tags)
	assert.Equal(t, created.DateCreated, got.DateCreated, "creation timestamp is immutable")

	w = do(t, s, http.MethodGet, "/bookmarks", nil)
	listed := decodeBody[[]bookmark.BookmarkJSON](t, w)
	require.Len(t, listed, 1)
	assert.Equal(t, []string{"b", "c", "d"}, listed[0].Tags)
}

func TestUpdateUnknownID(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	body := map[string]any{
		"id":     999,
		"url":    "http://a.com",
		"secret": testSecret,
	}

	w := do(t, s, http.MethodPost, "/update", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]string{"error": "Bookmark not found"}, decodeBody[map[string]string](t, w))
}

func TestUpdateNonNumericID(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	body := map[string]any{
		"id":     "abc",
		"url":    "http://a.com",
		"secret": testSecret,
	}

	w := do(t, s, http.MethodPost, "/update", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateURLConflict(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/create", createBody("http://a.com")).Code)

	w := do(t, s, http.MethodPost, "/create", createBody("http://b.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	second := decodeBody[bookmark.BookmarkJSON](t, w)

	body := map[string]any{
		"id":     second.ID,
		"url":    "http://a.com",
		"secret": testSecret,
	}

	w = do(t, s, http.MethodPost, "/update", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"error": "URL already exists"}, decodeBody[map[string]string](t, w))
}

func TestDeleteBookmark(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodPost, "/create", createBody("http://a.com", "go"))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[bookmark.BookmarkJSON](t, w)

	// wrong secret
	w = do(t, s, http.MethodPost, "/delete", map[string]any{"id": created.ID, "secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// unknown id
	w = do(t, s, http.MethodPost, "/delete", map[string]any{"id": 999, "secret": testSecret})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the real thing
	w = do(t, s, http.MethodPost, "/delete", map[string]any{"id": created.ID, "secret": testSecret})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"message": "URL deleted"}, decodeBody[map[string]string](t, w))

	w = do(t, s, http.MethodGet, "/bookmarks", nil)
	assert.Empty(t, decodeBody[[]bookmark.BookmarkJSON](t, w))
}

func TestTagsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/create", createBody("http://a.com", "go", "cli")).Code)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/create", createBody("http://b.com", "go")).Code)

	w := do(t, s, http.MethodGet, "/tags", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	got := decodeBody[[]tagResponse](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, tagResponse{ID: 1, Name: "go", Count: 2}, got[0])
	assert.Equal(t, tagResponse{ID: 2, Name: "cli", Count: 1}, got[1])
}

func TestRoutePrefix(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/api")

	w := do(t, s, http.MethodGet, "/api/bookmarks", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/bookmarks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "/")

	w := do(t, s, http.MethodOptions, "/bookmarks", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
