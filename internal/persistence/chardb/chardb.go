// Package chardb persists player characters in a local SQLite file.
// Saves are queued to a background writer so the simulation never
// blocks on disk; loads are synchronous (they only happen on join).
package chardb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelrealm.gg/internal/sim/room"
)

type Store struct {
	db *sql.DB

	ch   chan room.CharacterRecord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		ch: make(chan room.CharacterRecord, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the save-heavy access pattern; NORMAL is enough
	// durability for character data that also lives in room memory.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS characters (
		name       TEXT PRIMARY KEY,
		record     TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Load returns the stored record for a character name, with the second
// result false when the character is new.
func (s *Store) Load(name string) (room.CharacterRecord, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT record FROM characters WHERE name = ?`, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return room.CharacterRecord{}, false, nil
	}
	if err != nil {
		return room.CharacterRecord{}, false, err
	}
	var rec room.CharacterRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return room.CharacterRecord{}, false, fmt.Errorf("character %q: %w", name, err)
	}
	return rec, true, nil
}

// Save queues an upsert. A full queue drops the save rather than
// stalling the caller; the next save for the same name supersedes it
// anyway.
func (s *Store) Save(rec room.CharacterRecord) error {
	if s.closed.Load() {
		return fmt.Errorf("store closed")
	}
	select {
	case s.ch <- rec:
		return nil
	default:
		return fmt.Errorf("save queue full, dropped %q", rec.Name)
	}
}

func (s *Store) loop() {
	for rec := range s.ch {
		s.write(rec)
	}
}

func (s *Store) write(rec room.CharacterRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, _ = s.db.Exec(
		`INSERT INTO characters (name, record, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		rec.Name, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
}

// Close drains queued saves and closes the database.
func (s *Store) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
	})
	s.wg.Wait()
	return s.db.Close()
}
