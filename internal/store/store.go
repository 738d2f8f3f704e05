// Package store persists named save slots: each slot holds one engine
// save document (the JSON produced by vm.EngineState.MarshalState) keyed
// by an arbitrary host-chosen slot name, backed by SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

// Slot describes one stored save: its name, when it was written, and the
// raw engine save document.
type Slot struct {
	Name      string
	UpdatedAt time.Time
	Document  []byte
}

// Store is an open save-slot database. It owns a single *sql.DB and
// serializes nothing itself — database/sql already pools and synchronizes
// access to the underlying SQLite connection.
type Store struct {
	db   *sql.DB
	psql squirrel.StatementBuilderType
}

// Open creates or opens the save-slot database at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening save store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging save store: %w", err)
	}

	s := &Store{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS save_slots (
	name       TEXT PRIMARY KEY,
	document   BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
	if err != nil {
		return fmt.Errorf("migrating save store schema: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`)
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

// Put writes or overwrites the named slot with document.
func (s *Store) Put(name string, document []byte) error {
	query := s.psql.Insert("save_slots").
		Columns("name", "document", "updated_at").
		Values(name, document, squirrel.Expr("CURRENT_TIMESTAMP")).
		Suffix("ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("building put query for slot %q: %w", name, err)
	}
	if _, err := s.db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("writing slot %q: %w", name, err)
	}
	log.Info("wrote save slot", "name", name, "bytes", len(document))
	return nil
}

// Get reads the named slot's document. It returns an error wrapping
// sql.ErrNoRows if the slot does not exist.
func (s *Store) Get(name string) (*Slot, error) {
	query := s.psql.Select("name", "document", "updated_at").
		From("save_slots").
		Where(squirrel.Eq{"name": name})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get query for slot %q: %w", name, err)
	}

	var slot Slot
	row := s.db.QueryRow(sqlStr, args...)
	if err := row.Scan(&slot.Name, &slot.Document, &slot.UpdatedAt); err != nil {
		return nil, fmt.Errorf("reading slot %q: %w", name, err)
	}
	return &slot, nil
}

// List returns every stored slot's name and timestamp, most recently
// updated first, without loading document bodies.
func (s *Store) List() ([]Slot, error) {
	query := s.psql.Select("name", "updated_at").
		From("save_slots").
		OrderBy("updated_at DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.Name, &slot.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning slot row: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Delete removes the named slot. It is not an error to delete a slot that
// does not exist.
func (s *Store) Delete(name string) error {
	query := s.psql.Delete("save_slots").Where(squirrel.Eq{"name": name})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("building delete query for slot %q: %w", name, err)
	}
	if _, err := s.db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("deleting slot %q: %w", name, err)
	}
	log.Info("deleted save slot", "name", name)
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
