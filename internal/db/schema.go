package db

// tables.
const (
	tableMainName = "bookmarks"
	tableTagsName = "tags"
)

type Schema struct {
	Name  string
	SQL   string
	Index string
}

// tablesAndSchemas all tables and their schema.
var tablesAndSchemas = []Schema{
	schemaMain,
	schemaTags,
}

// schemaMain is the schema for the main table.
var schemaMain = Schema{
	Name:  tableMainName,
	SQL:   tableMainSchema,
	Index: tableMainIndex,
}

// schemaTags is the schema for the tags table. A tag row is exclusively
// owned by its bookmark: the reference is NOT NULL and cascades on delete.
var schemaTags = Schema{
	Name:  tableTagsName,
	SQL:   tableTagsSchema,
	Index: tableTagsIndex,
}

// main table.
const (
	tableMainSchema = `
    CREATE TABLE IF NOT EXISTS bookmarks (
        id          INTEGER PRIMARY KEY AUTOINCREMENT,
        url         TEXT    NOT NULL UNIQUE,
        title       TEXT    DEFAULT "",
        desc        TEXT    DEFAULT "",
        created_at  TIMESTAMP NOT NULL
    );`

	tableMainIndex = `
    CREATE UNIQUE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);
    CREATE INDEX IF NOT EXISTS idx_bookmarks_created_at ON bookmarks(created_at);`
)

// tags table.
const (
	tableTagsSchema = `
    CREATE TABLE IF NOT EXISTS tags (
        id          INTEGER PRIMARY KEY AUTOINCREMENT,
        name        TEXT    NOT NULL,
        bookmark_id INTEGER NOT NULL REFERENCES bookmarks(id) ON DELETE CASCADE
    );`

	tableTagsIndex = `
    CREATE INDEX IF NOT EXISTS idx_tags_bookmark_id ON tags(bookmark_id);
    CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name);`
)
