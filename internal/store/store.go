package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lotas/tabruhe/internal/applog"
	"github.com/lotas/tabruhe/internal/types"
	_ "modernc.org/sqlite"
)

// Top-level keys the core reads and writes.
const (
	KeyWindows = "windows"
	KeyTabs    = "tabs"
	KeyTheme   = "userTheme"
)

// WriteDebounce is the quiet interval for queued writes. Bursts of
// reconciler updates inside this window collapse into one flush.
const WriteDebounce = 100 * time.Millisecond

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial key-value schema",
		SQL: `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "session snapshots",
		SQL: `
CREATE TABLE IF NOT EXISTS snapshots (
    rev        INTEGER PRIMARY KEY AUTOINCREMENT,
    label      TEXT NOT NULL DEFAULT '',
    tab_count  INTEGER NOT NULL,
    data       BLOB NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	},
}

// Store is a small persistent key-value store over a fixed set of top-level
// keys. Values are JSON blobs, lz4-compressed on disk. Set is durable on
// return; QueueWrite coalesces rapid successive writes into one flush.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	queue  map[string][]byte
	timer  *time.Timer
	subs   []chan []string
	closed bool
}

// Open opens (or creates) the store database at the given path, creating
// parent directories, enabling foreign keys and WAL, and running migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:    db,
		queue: make(map[string][]byte),
	}, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		if err := db.QueryRow(
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultPath returns the default database file path:
// ~/.local/share/tabruhe/tabruhe.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tabruhe", "tabruhe.db"), nil
}

// Get returns the stored values for the given keys. Queued writes that have
// not flushed yet are visible, so a read after QueueWrite never goes stale.
// Absent keys are simply missing from the result map; callers get empty
// defaults, never an error for a key that was never written.
func (s *Store) Get(keys ...string) (map[string][]byte, error) {
	queued := make(map[string][]byte, len(keys))
	s.mu.Lock()
	for _, key := range keys {
		if v, ok := s.queue[key]; ok {
			queued[key] = v
		}
	}
	s.mu.Unlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := queued[key]; ok {
			result[key] = v
			continue
		}
		var raw []byte
		err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&raw)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read key %q: %w", key, err)
		}
		value, err := decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", key, err)
		}
		result[key] = value
	}
	return result, nil
}

// Set durably persists the given partial update. Each entry replaces the
// whole value under its top-level key. Subscribers are notified with the
// list of changed keys.
func (s *Store) Set(partial map[string][]byte) error {
	if len(partial) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range partial {
		if _, err := tx.Exec(
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, compress(value),
		); err != nil {
			return fmt.Errorf("write key %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	keys := make([]string, 0, len(partial))
	for key := range partial {
		keys = append(keys, key)
	}
	s.notify(keys)
	return nil
}

// QueueWrite merges the partial update into the pending queue and schedules
// a flush after the debounce interval. Loss of the very latest queued write
// on crash is acceptable for the high-frequency reconciler paths using this.
func (s *Store) QueueWrite(partial map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for key, value := range partial {
		s.queue[key] = value
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(WriteDebounce, func() {
		if err := s.Flush(); err != nil {
			applog.Error("store.flush", err)
		}
	})
}

// Flush writes any queued updates immediately.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.queue
	s.queue = make(map[string][]byte)
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	return s.Set(pending)
}

// Subscribe returns a channel that receives the changed top-level keys after
// each committed write. Slow consumers drop notifications rather than block.
func (s *Store) Subscribe() <-chan []string {
	ch := make(chan []string, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify(keys []string) {
	s.mu.Lock()
	subs := make([]chan []string, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- keys:
		default:
		}
	}
}

// Close flushes pending queued writes and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		applog.Error("store.close.flush", err)
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

// LoadModel reads the windows and tabs maps. Missing or never-written keys
// come back as empty maps, never nil.
func (s *Store) LoadModel() (*types.Model, error) {
	values, err := s.Get(KeyWindows, KeyTabs)
	if err != nil {
		return nil, err
	}
	m := types.NewModel()
	if raw, ok := values[KeyWindows]; ok {
		if err := json.Unmarshal(raw, &m.Windows); err != nil {
			return nil, fmt.Errorf("parse windows: %w", err)
		}
	}
	if raw, ok := values[KeyTabs]; ok {
		if err := json.Unmarshal(raw, &m.Tabs); err != nil {
			return nil, fmt.Errorf("parse tabs: %w", err)
		}
	}
	if m.Windows == nil {
		m.Windows = make(map[string]*types.Window)
	}
	if m.Tabs == nil {
		m.Tabs = make(map[string]*types.Tab)
	}
	return m, nil
}

// SaveModel durably persists both model maps as full replacements.
func (s *Store) SaveModel(m *types.Model) error {
	partial, err := encodeModel(m)
	if err != nil {
		return err
	}
	return s.Set(partial)
}

// QueueModel schedules a debounced persist of both model maps.
func (s *Store) QueueModel(m *types.Model) {
	partial, err := encodeModel(m)
	if err != nil {
		applog.Error("store.queue.encode", err)
		return
	}
	s.QueueWrite(partial)
}

func encodeModel(m *types.Model) (map[string][]byte, error) {
	windows, err := json.Marshal(m.Windows)
	if err != nil {
		return nil, fmt.Errorf("encode windows: %w", err)
	}
	tabs, err := json.Marshal(m.Tabs)
	if err != nil {
		return nil, fmt.Errorf("encode tabs: %w", err)
	}
	return map[string][]byte{KeyWindows: windows, KeyTabs: tabs}, nil
}
