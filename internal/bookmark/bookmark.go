// Package bookmark contains the bookmark record and its JSON forms.
package bookmark

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidID = errors.New("invalid bookmark id")
	ErrURLEmpty  = errors.New("URL cannot be empty")
)

// Bookmark represents a stored bookmark. Tags holds the comma-joined tag
// names as they come out of the database.
type Bookmark struct {
	ID        int    `db:"id"         json:"id"`
	URL       string `db:"url"        json:"url"`
	Title     string `db:"title"      json:"title"`
	Desc      string `db:"desc"       json:"description"`
	CreatedAt string `db:"created_at" json:"date_created"`
	Tags      string `db:"tags"       json:"-"`
}

// BookmarkJSON is the wire form of a bookmark.
type BookmarkJSON struct {
	ID          int      `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DateCreated string   `json:"date_created"`
	Tags        []string `json:"tags"`
}

func New() *Bookmark {
	return &Bookmark{}
}

// JSON returns the wire form, with tags sorted lexicographically.
func (b *Bookmark) JSON() *BookmarkJSON {
	return &BookmarkJSON{
		ID:          b.ID,
		URL:         b.URL,
		Title:       b.Title,
		Description: b.Desc,
		DateCreated: b.CreatedAt,
		Tags:        SplitTags(b.Tags),
	}
}

// SplitTags splits a comma-joined tag string and sorts the names.
// Duplicate names are kept; an empty string yields an empty, non-nil slice.
func SplitTags(s string) []string {
	tags := strings.FieldsFunc(s, func(r rune) bool {
		return r == ','
	})
	if tags == nil {
		tags = []string{}
	}

	sort.Strings(tags)

	return tags
}

// JoinTags joins tag names as submitted, preserving order and duplicates.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// Validate checks the record's required fields.
func Validate(b *Bookmark) error {
	if b.URL == "" {
		return ErrURLEmpty
	}

	return nil
}
