package cache

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLite is a provider backed by a SQLite database file.
type SQLite struct {
	db         *sql.DB
	writeMutex *sync.Mutex
	defaultTTL time.Duration
}

// NewSQLite creates a provider with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLite(filename string, defaultTTL time.Duration) (*SQLite, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, expires INTEGER, bytes BLOB)"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}
	return &SQLite{
		db:         db,
		writeMutex: &sync.Mutex{},
		defaultTTL: defaultTTL,
	}, nil
}

func (s *SQLite) Get(key string) ([]byte, bool, error) {
	var expires int64
	var bytes []byte
	err := s.db.QueryRow("SELECT expires, bytes FROM cache WHERE key = ?", key).Scan(&expires, &bytes)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Now().After(time.Unix(expires, 0)) {
		s.purge(key)
		return nil, false, nil
	}
	return bytes, true, nil
}

func (s *SQLite) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expires := time.Now().Add(ttl)
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO cache (key, expires, bytes) VALUES (?, ?, ?)",
		key, expires.Unix(), value)
	return err
}

func (s *SQLite) DefaultTTL() time.Duration {
	return s.defaultTTL
}

func (s *SQLite) purge(key string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	s.db.Exec("DELETE FROM cache WHERE key = ?", key)
}
