package db

import (
	"context"
	"fmt"
)

// TagCount is one row of the tag aggregation: a distinct tag name and the
// number of bookmarks carrying it.
type TagCount struct {
	Name  string `db:"name"  json:"name"`
	Count int    `db:"count" json:"count"`
}

// TagsCounter returns every distinct tag name with the count of distinct
// bookmarks using it, ordered by count descending. Counting owning bookmarks
// rather than tag rows keeps duplicate same-named rows on one bookmark from
// inflating the metric.
func (r *SQLite) TagsCounter(ctx context.Context) ([]TagCount, error) {
	q := `
    SELECT
      t.name,
      COUNT(DISTINCT t.bookmark_id) AS count
    FROM
      tags t
    GROUP BY
      t.name
    ORDER BY
      count DESC,
      t.name ASC;`

	var results []TagCount
	if err := r.DB.SelectContext(ctx, &results, q); err != nil {
		return nil, fmt.Errorf("error querying tags count: %w", err)
	}

	return results, nil
}

// TagsList returns the list of distinct tag names.
func (r *SQLite) TagsList(ctx context.Context) ([]string, error) {
	var tags []string

	err := r.DB.SelectContext(ctx, &tags, "SELECT DISTINCT name FROM tags ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to get all tags: %w", err)
	}

	return tags, nil
}
