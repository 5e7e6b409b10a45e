package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/mateconpizza/bmd/internal/bookmark"
)

// setupTestDB sets up an in-memory test database.
func setupTestDB(t *testing.T) *SQLite {
	t.Helper()

	r, err := New(t.Context(), fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(r.Close)

	return r
}

// testInsert inserts a bookmark with the given url and tags.
func testInsert(t *testing.T, r *SQLite, url string, tags ...string) *bookmark.Bookmark {
	t.Helper()

	b := bookmark.New()
	b.URL = url
	b.Title = "Title"
	b.Desc = "Description"

	if err := r.InsertOne(t.Context(), b, tags); err != nil {
		t.Fatalf("failed to insert bookmark %q: %v", url, err)
	}

	return b
}

func TestInit(t *testing.T) {
	t.Parallel()
	r := setupTestDB(t)

	for _, s := range tablesAndSchemas {
		exists, err := tableExists(r, s.Name)
		if err != nil {
			t.Fatalf("failed to check if table %s exists: %v", s.Name, err)
		}
		if !exists {
			t.Fatalf("table %s does not exist", s.Name)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()
	r := setupTestDB(t)

	if err := r.Init(t.Context()); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
}
