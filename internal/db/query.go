package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mateconpizza/bmd/internal/bookmark"
)

// Logic selects how a multi-tag filter combines its tag names.
type Logic string

const (
	LogicAND Logic = "AND"
	LogicOR  Logic = "OR"
)

// ParseLogic parses a filter logic string, case-insensitively. Anything
// other than "OR" means AND.
func ParseLogic(s string) Logic {
	if strings.EqualFold(strings.TrimSpace(s), string(LogicOR)) {
		return LogicOR
	}

	return LogicAND
}

// selectWithTags is the base SELECT attaching every tag of each matching
// bookmark, newest first.
const selectWithTags = `
    SELECT
      b.*,
      COALESCE(GROUP_CONCAT(t.name, ','), '') AS tags
    FROM
      bookmarks b
      LEFT JOIN tags t ON t.bookmark_id = b.id
    %s
    GROUP BY
      b.id
    ORDER BY
      b.created_at DESC,
      b.id DESC;`

// All returns all bookmarks, ordered by creation date descending.
func (r *SQLite) All(ctx context.Context) ([]*bookmark.Bookmark, error) {
	bs, err := r.bySQL(ctx, fmt.Sprintf(selectWithTags, ""))
	if err != nil {
		return nil, err
	}

	slog.Debug("getting all records", "got", len(bs))

	return bs, nil
}

// ByTags returns the bookmarks matching the given tag names. With LogicOR a
// bookmark matches if it owns at least one of the names; with LogicAND it
// must own all n distinct names. An empty name list behaves like All.
func (r *SQLite) ByTags(ctx context.Context, names []string, logic Logic) ([]*bookmark.Bookmark, error) {
	if len(names) == 0 {
		return r.All(ctx)
	}

	// Membership is resolved in a subquery so the outer join still attaches
	// the bookmark's full tag set. The DISTINCT name count keeps duplicate
	// same-named rows from satisfying an AND filter.
	var sub string
	args := []any{names}

	switch logic {
	case LogicOR:
		sub = "WHERE b.id IN (SELECT bookmark_id FROM tags WHERE name IN (?))"
	default:
		sub = `WHERE b.id IN (
        SELECT bookmark_id FROM tags
        WHERE name IN (?)
        GROUP BY bookmark_id
        HAVING COUNT(DISTINCT name) = ?)`
		args = append(args, len(names))
	}

	q, inArgs, err := sqlx.In(fmt.Sprintf(selectWithTags, sub), args...)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	bs, err := r.bySQL(ctx, r.DB.Rebind(q), inArgs...)
	if err != nil {
		return nil, err
	}

	slog.Debug("getting records by tags", "tags", names, "logic", logic, "got", len(bs))

	return bs, nil
}

// ByID returns a record by its ID, with its tags attached.
func (r *SQLite) ByID(ctx context.Context, bID int) (*bookmark.Bookmark, error) {
	q := `
    SELECT
      b.*,
      COALESCE(GROUP_CONCAT(t.name, ','), '') AS tags
    FROM
      bookmarks b
      LEFT JOIN tags t ON t.bookmark_id = b.id
    WHERE
      b.id = ?
    GROUP BY
      b.id`

	var b bookmark.Bookmark
	err := r.DB.GetContext(ctx, &b, q, bID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w with id: %d", ErrRecordNotFound, bID)
		}

		return nil, fmt.Errorf("getting by ID: %w", err)
	}

	return &b, nil
}

// bySQL retrieves records from the SQLite database based on the provided SQL
// query.
func (r *SQLite) bySQL(ctx context.Context, q string, args ...any) ([]*bookmark.Bookmark, error) {
	var bb []*bookmark.Bookmark
	err := r.DB.SelectContext(ctx, &bb, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return bb, nil
}
