package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const maxUpdateAttempts = 5

// SQLiteStore keeps values in a single table with a version column. Update is
// optimistic: the write only lands if nobody bumped the version since the read,
// which keeps several processes sharing one database file consistent.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	value, _, err := s.read(ctx, key)
	return value, err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv.version + 1, updated_at = CURRENT_TIMESTAMP
	`, key, nonNil(value))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, version, err := s.read(ctx, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		ok, err := s.compareAndSwap(ctx, key, version, next)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("update %s: %w", key, ErrConflict)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// read returns version 0 for an absent key.
func (s *SQLiteStore) read(ctx context.Context, key string) ([]byte, int64, error) {
	var value []byte
	var version int64
	err := s.db.QueryRowContext(ctx, "SELECT value, version FROM kv WHERE key = ?", key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", key, err)
	}
	return value, version, nil
}

func (s *SQLiteStore) compareAndSwap(ctx context.Context, key string, version int64, value []byte) (bool, error) {
	var res sql.Result
	var err error
	if version == 0 {
		res, err = s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)",
			key, nonNil(value))
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE kv SET value = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE key = ? AND version = ?",
			nonNil(value), key, version)
	}
	if err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}
	return n == 1, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
