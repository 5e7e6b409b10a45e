// Package db provides the SQLite storage layer for bookmarks and tags.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	MaxOpenConns    = 10        // Maximum number of open connections
	MaxIdleConns    = 5         // Maximum number of idle connections
	MaxLifetimeConn = time.Hour // Maximum connection lifetime
)

// SQLite is the bookmark repository backed by a SQLite database.
type SQLite struct {
	DB        *sqlx.DB
	path      string
	closeOnce sync.Once
}

// Path returns the path the database was opened with.
func (r *SQLite) Path() string {
	return r.path
}

// Close closes the database connection and logs any errors encountered.
func (r *SQLite) Close() {
	r.closeOnce.Do(func() {
		if err := r.DB.Close(); err != nil {
			slog.Error("closing database", "path", r.path, "error", err)
		} else {
			slog.Debug("database closed", "path", r.path)
		}
	})
}

// New opens the database at the provided path and creates the schema if it
// does not exist yet.
func New(ctx context.Context, p string) (*SQLite, error) {
	if p == "" {
		return nil, fmt.Errorf("%w: %q", ErrDBNotFound, p)
	}

	conn, err := openDatabase(p)
	if err != nil {
		slog.Error("opening database", "error", err, "path", p)
		return nil, err
	}

	r := &SQLite{DB: conn, path: p}
	if err := r.Init(ctx); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// buildDSN constructs a SQLite Data Source Name from a file path and
// optional pragma directives.
func buildDSN(path string, pragmas []string) string {
	queryParams := url.Values{}
	for _, p := range pragmas {
		queryParams.Add("_pragma", p)
	}

	if len(queryParams) == 0 {
		return path
	}

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}

	return path + separator + queryParams.Encode()
}

// openDatabase opens a SQLite database at the specified path and verifies
// the connection, returning the database handle or an error.
func openDatabase(path string) (*sqlx.DB, error) {
	slog.Debug("opening database", "path", path)
	inMemory := strings.Contains(path, "mode=memory") || path == ":memory:"

	pragmas := []string{
		"journal_mode(WAL)",   // enable multi-thread safe mode with wal
		"foreign_keys(1)",     // enforce foreign key constraints
		"synchronous(NORMAL)", // balance performance and durability
		"busy_timeout(5000)",  // set a timeout for a busy database
	}

	dsn := buildDSN(path, pragmas)
	if inMemory {
		dsn = buildDSN(path, []string{"foreign_keys(1)"})
	}

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	conn.SetMaxOpenConns(MaxOpenConns)
	conn.SetMaxIdleConns(MaxIdleConns)
	conn.SetConnMaxLifetime(MaxLifetimeConn)

	if err := conn.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: on ping context", err)
	}

	return conn, nil
}

// WithTx executes a function within a transaction.
func (r *SQLite) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() // ensure rollback on panic

			panic(p) // re-throw the panic after rollback
		} else if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback error", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}

// isUniqueConstraintErr reports whether err is a violation of the unique
// index on bookmarks.url, the storage-level guard against two concurrent
// creates racing on the same URL.
func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
