package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL,
	at      TEXT NOT NULL,
	kind    TEXT NOT NULL,
	subject TEXT NOT NULL,
	remedy  TEXT NOT NULL
);
`

// SQLiteStore keeps state and an audit trail in a single database under
// the runtime directory. The pure-Go driver keeps cross-compiles for
// embedded targets cgo-free.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) <dir>/routermedic.db.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	path := filepath.Join(dir, "routermedic.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging state database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading state %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing state %q: %w", key, err)
	}
	return nil
}

// GetInt64 implements Store.
func (s *SQLiteStore) GetInt64(key string) (int64, error) {
	raw, err := s.get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("state %q holds %q: %w", key, raw, err)
	}
	return v, nil
}

// SetInt64 implements Store.
func (s *SQLiteStore) SetInt64(key string, v int64) error {
	return s.set(key, strconv.FormatInt(v, 10))
}

// GetTime implements Store.
func (s *SQLiteStore) GetTime(key string) (time.Time, error) {
	v, err := s.GetInt64(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}

// SetTime implements Store.
func (s *SQLiteStore) SetTime(key string, t time.Time) error {
	return s.SetInt64(key, t.Unix())
}

// Delete implements Store.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM state WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting state %q: %w", key, err)
	}
	return nil
}

// AppendAudit records one audit entry. The recorder uses this in addition
// to the flat audit log when the sqlite backend is selected, so entries
// are queryable in place on the device.
func (s *SQLiteStore) AppendAudit(runID string, at time.Time, kind, subject, remedy string) error {
	_, err := s.db.Exec(
		"INSERT INTO audit (run_id, at, kind, subject, remedy) VALUES (?, ?, ?, ?, ?)",
		runID, at.UTC().Format(time.RFC3339), kind, subject, remedy)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }
