package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mateconpizza/bmd/internal/bookmark"
)

// InsertOne creates a new record in the main table along with one tag row
// per submitted name, duplicates included. On success b carries its assigned
// ID, creation timestamp and tags.
func (r *SQLite) InsertOne(ctx context.Context, b *bookmark.Bookmark, tags []string) error {
	if err := bookmark.Validate(b); err != nil {
		return err
	}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := hasURLTx(tx, b.URL)
		if err != nil {
			return err
		}

		if exists {
			return fmt.Errorf("%w: %q", ErrRecordDuplicate, b.URL)
		}

		if err := insertRecordTx(tx, b); err != nil {
			return err
		}

		return insertTagsTx(tx, b.ID, tags)
	})
	if err != nil {
		// the unique index on url is the authoritative guard: two creates
		// racing past the exists check still end up here.
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: %q", ErrRecordDuplicate, b.URL)
		}

		return err
	}

	b.Tags = bookmark.JoinTags(tags)

	slog.Debug("inserted record", "id", b.ID, "url", b.URL)

	return nil
}

// UpdateOne updates a record's url, title and desc and reconciles its tag
// rows against the submitted names: rows whose name is absent from the new
// list are deleted, names absent from the surviving set are inserted, and
// unchanged rows keep their identity.
func (r *SQLite) UpdateOne(ctx context.Context, b *bookmark.Bookmark, tags []string) error {
	if err := bookmark.Validate(b); err != nil {
		return err
	}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := hasIDTx(tx, b.ID)
		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf("%w with id: %d", ErrRecordNotFound, b.ID)
		}

		var taken bool
		err = tx.Get(&taken, "SELECT EXISTS(SELECT 1 FROM bookmarks WHERE url = ? AND id != ?)", b.URL, b.ID)
		if err != nil {
			return fmt.Errorf("%w", err)
		}

		if taken {
			return fmt.Errorf("%w: %q", ErrRecordDuplicate, b.URL)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE bookmarks SET url = ?, title = ?, desc = ? WHERE id = ?",
			b.URL, b.Title, b.Desc, b.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}

		if err := reconcileTagsTx(ctx, tx, b.ID, tags); err != nil {
			return err
		}

		return tx.Get(&b.CreatedAt, "SELECT created_at FROM bookmarks WHERE id = ?", b.ID)
	})
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: %q", ErrRecordDuplicate, b.URL)
		}

		return err
	}

	b.Tags = bookmark.JoinTags(tags)

	slog.Debug("updated record", "id", b.ID, "url", b.URL)

	return nil
}

// DeleteOne removes a record's tag rows and then the record itself,
// atomically.
func (r *SQLite) DeleteOne(ctx context.Context, bID int) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := hasIDTx(tx, bID)
		if err != nil {
			return err
		}

		if !exists {
			return fmt.Errorf("%w with id: %d", ErrRecordNotFound, bID)
		}

		// the FK cascade covers this, kept explicit so the ordering does not
		// depend on the connection's foreign_keys pragma.
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE bookmark_id = ?", bID); err != nil {
			return fmt.Errorf("failed to delete tags: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", bID); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}

		slog.Debug("deleted record", "id", bID)

		return nil
	})
}

// insertRecordTx inserts a new record and assigns its ID and timestamp.
func insertRecordTx(tx *sqlx.Tx, b *bookmark.Bookmark) error {
	b.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	res, err := tx.NamedExec(`
    INSERT INTO bookmarks (url, title, desc, created_at)
    VALUES (:url, :title, :desc, :created_at)`, b)
	if err != nil {
		return fmt.Errorf("%w: %q", err, b.URL)
	}

	bid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	b.ID = int(bid)

	return nil
}

// insertTagsTx inserts one tag row per name, as submitted.
func insertTagsTx(tx *sqlx.Tx, bID int, tags []string) error {
	for _, name := range tags {
		if name == "" {
			continue
		}

		_, err := tx.Exec("INSERT INTO tags (name, bookmark_id) VALUES (?, ?)", name, bID)
		if err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", name, err)
		}
	}

	return nil
}

// reconcileTagsTx diffs the record's tag rows against the submitted names.
// Rows with a surviving name are left untouched so they keep their ids.
func reconcileTagsTx(ctx context.Context, tx *sqlx.Tx, bID int, tags []string) error {
	if len(tags) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE bookmark_id = ?", bID); err != nil {
			return fmt.Errorf("failed to delete tags: %w", err)
		}
	} else {
		q, args, err := sqlx.In("DELETE FROM tags WHERE bookmark_id = ? AND name NOT IN (?)", bID, tags)
		if err != nil {
			return fmt.Errorf("%w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("failed to delete stale tags: %w", err)
		}
	}

	var existing []string
	if err := tx.Select(&existing, "SELECT name FROM tags WHERE bookmark_id = ?", bID); err != nil {
		return fmt.Errorf("%w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, name := range existing {
		seen[name] = true
	}

	for _, name := range tags {
		if name == "" || seen[name] {
			continue
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO tags (name, bookmark_id) VALUES (?, ?)", name, bID); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", name, err)
		}
	}

	return nil
}

// hasURLTx checks if a record with the given url exists, in a transaction.
func hasURLTx(tx *sqlx.Tx, bURL string) (bool, error) {
	var exists bool

	err := tx.Get(&exists, "SELECT EXISTS(SELECT 1 FROM bookmarks WHERE url = ?)", bURL)
	if err != nil {
		return false, fmt.Errorf("%w", err)
	}

	return exists, nil
}

// hasIDTx checks if a record with the given id exists, in a transaction.
func hasIDTx(tx *sqlx.Tx, bID int) (bool, error) {
	var exists bool

	err := tx.Get(&exists, "SELECT EXISTS(SELECT 1 FROM bookmarks WHERE id = ?)", bID)
	if err != nil {
		return false, fmt.Errorf("%w", err)
	}

	return exists, nil
}
