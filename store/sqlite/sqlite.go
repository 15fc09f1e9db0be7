// Package sqlite implements the store contract on an embedded SQLite
// database in WAL mode. Each session owns a dedicated connection from
// the pool; a checkpoint truncates the write-ahead log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"kvperf/store"

	_ "github.com/mattn/go-sqlite3"
)

// Opener opens (and on first use creates) the database file for a
// table underneath the home directory.
type Opener struct {
	Home  string
	Table string
}

func (o *Opener) Open() (store.Connection, error) {
	if err := os.MkdirAll(o.Home, 0755); err != nil {
		return nil, fmt.Errorf("creating home directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000",
		filepath.Join(o.Home, o.Table+".db"))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (k TEXT PRIMARY KEY, v BLOB NOT NULL)", o.Table)
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table %s: %w", o.Table, err)
	}
	return &connection{db: db}, nil
}

type connection struct {
	db *sql.DB
}

func (c *connection) OpenSession() (store.Session, error) {
	conn, err := c.db.Conn(context.Background())
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return &session{conn: conn}, nil
}

func (c *connection) Close() error { return c.db.Close() }

type session struct {
	conn *sql.Conn
}

func (s *session) OpenCursor(table string) (store.Cursor, error) {
	return &cursor{
		conn:      s.conn,
		searchSQL: fmt.Sprintf("SELECT v FROM %q WHERE k = ?", table),
		insertSQL: fmt.Sprintf("INSERT OR REPLACE INTO %q (k, v) VALUES (?, ?)", table),
		updateSQL: fmt.Sprintf("UPDATE %q SET v = ? WHERE k = ?", table),
		prevSQL:   fmt.Sprintf("SELECT k, v FROM %q ORDER BY k DESC LIMIT 1", table),
	}, nil
}

// BeginTransaction starts an explicit transaction on the session's
// dedicated connection; the cursor operations in between join it.
func (s *session) BeginTransaction() error {
	_, err := s.conn.ExecContext(context.Background(), "BEGIN")
	return err
}

func (s *session) CommitTransaction() error {
	_, err := s.conn.ExecContext(context.Background(), "COMMIT")
	return err
}

func (s *session) Checkpoint() error {
	_, err := s.conn.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *session) Close() error { return s.conn.Close() }

type cursor struct {
	conn  *sql.Conn
	key   []byte
	value []byte

	searchSQL string
	insertSQL string
	updateSQL string
	prevSQL   string
}

func (c *cursor) SetKey(key []byte)     { c.key = key }
func (c *cursor) SetValue(value []byte) { c.value = value }

func (c *cursor) Search() store.Result {
	row := c.conn.QueryRowContext(context.Background(), c.searchSQL, string(c.key))
	var v []byte
	switch err := row.Scan(&v); err {
	case nil:
		c.value = v
		return store.OK()
	case sql.ErrNoRows:
		return store.NotFound()
	default:
		return store.Fail(fmt.Errorf("search: %w", err))
	}
}

// Insert stores the record, overwriting any existing value.
func (c *cursor) Insert() store.Result {
	_, err := c.conn.ExecContext(context.Background(), c.insertSQL, string(c.key), c.value)
	if err != nil {
		return store.Fail(fmt.Errorf("insert: %w", err))
	}
	return store.OK()
}

func (c *cursor) Update() store.Result {
	res, err := c.conn.ExecContext(context.Background(), c.updateSQL, c.value, string(c.key))
	if err != nil {
		return store.Fail(fmt.Errorf("update: %w", err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound()
	}
	return store.OK()
}

func (c *cursor) Prev() store.Result {
	row := c.conn.QueryRowContext(context.Background(), c.prevSQL)
	var k string
	var v []byte
	switch err := row.Scan(&k, &v); err {
	case nil:
		c.key = []byte(k)
		c.value = v
		return store.OK()
	case sql.ErrNoRows:
		return store.NotFound()
	default:
		return store.Fail(fmt.Errorf("prev: %w", err))
	}
}

func (c *cursor) Key() []byte   { return c.key }
func (c *cursor) Value() []byte { return c.value }
func (c *cursor) Close() error  { return nil }
