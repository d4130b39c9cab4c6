// Package store persists capture snapshots to a sqlite-backed key/value
// sink. The ledger is authoritative; the store may lag behind it.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/inabajunmr/autosequence/internal/capture"
	_ "modernc.org/sqlite"
)

// Snapshot keys.
const (
	KeyRequests = "requests"
	KeyDomains  = "domains"
	KeyDiagram  = "diagram"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the snapshot database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			migrations = append(migrations, e.Name())
		}
	}
	sort.Strings(migrations)

	for _, name := range migrations {
		version, err := parseVersion(name)
		if err != nil {
			return fmt.Errorf("parse version from %s: %w", name, err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}

		if _, err := db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().Unix()); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}

	return nil
}

func parseVersion(filename string) (int, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) == 0 {
		return 0, fmt.Errorf("invalid migration filename: %s", filename)
	}
	return strconv.Atoi(parts[0])
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put upserts a raw value under a key.
func (s *Store) Put(key string, value []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, time.Now().Unix(),
	)
	return err
}

// Get returns the value for a key, or nil when the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM snapshots WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes the given keys.
func (s *Store) Delete(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec("DELETE FROM snapshots WHERE key = ?", key); err != nil {
			return err
		}
	}
	return nil
}

// SaveCapture writes the ledger and registry snapshot. An empty capture
// removes the persisted keys instead, matching a cleared session.
func (s *Store) SaveCapture(records []capture.RequestRecord, domains []capture.RegistryEntry) error {
	if len(records) == 0 && len(domains) == 0 {
		return s.Delete(KeyRequests, KeyDomains)
	}

	reqs, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal requests: %w", err)
	}
	doms, err := json.Marshal(domains)
	if err != nil {
		return fmt.Errorf("marshal domains: %w", err)
	}

	if err := s.Put(KeyRequests, reqs); err != nil {
		return fmt.Errorf("save requests: %w", err)
	}
	if err := s.Put(KeyDomains, doms); err != nil {
		return fmt.Errorf("save domains: %w", err)
	}
	return nil
}

// LoadCapture reads the persisted ledger and registry. Absent keys yield
// empty slices.
func (s *Store) LoadCapture() ([]capture.RequestRecord, []capture.RegistryEntry, error) {
	var records []capture.RequestRecord
	var domains []capture.RegistryEntry

	raw, err := s.Get(KeyRequests)
	if err != nil {
		return nil, nil, fmt.Errorf("load requests: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, nil, fmt.Errorf("unmarshal requests: %w", err)
		}
	}

	raw, err = s.Get(KeyDomains)
	if err != nil {
		return nil, nil, fmt.Errorf("load domains: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &domains); err != nil {
			return nil, nil, fmt.Errorf("unmarshal domains: %w", err)
		}
	}

	return records, domains, nil
}

// SaveDiagram stores the last compiled diagram text.
func (s *Store) SaveDiagram(text string) error {
	return s.Put(KeyDiagram, []byte(text))
}
