// Package state persists the resumable parts of a portal session between
// CLI invocations: the session token and the resolved default building.
// Credentials never touch the database.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"openfinna-go/lib/finna"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	session TEXT NOT NULL,
	building_id TEXT NOT NULL DEFAULT '',
	building_name TEXT NOT NULL DEFAULT ''
);
`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path != ":memory:" {
		os.MkdirAll(filepath.Dir(path), 0777)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("init state db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load reports the stored session and building; ("", nil, nil) on first run.
func (s *Store) Load() (string, *finna.Building, error) {
	row := s.db.QueryRow(
		`SELECT session, building_id, building_name FROM auth_state WHERE id = 1`,
	)
	var session, buildingId, buildingName string
	err := row.Scan(&session, &buildingId, &buildingName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("load auth state: %w", err)
	}

	var building *finna.Building
	if buildingId != "" {
		building = &finna.Building{Id: buildingId, Name: buildingName}
	}
	return session, building, nil
}

func (s *Store) Save(session string, building *finna.Building) error {
	var buildingId, buildingName string
	if building != nil {
		buildingId = building.Id
		buildingName = building.Name
	}
	_, err := s.db.Exec(
		`INSERT INTO auth_state (id, session, building_id, building_name)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		 	session = excluded.session,
		 	building_id = CASE WHEN excluded.building_id = '' THEN auth_state.building_id ELSE excluded.building_id END,
		 	building_name = CASE WHEN excluded.building_id = '' THEN auth_state.building_name ELSE excluded.building_name END`,
		session, buildingId, buildingName,
	)
	if err != nil {
		return fmt.Errorf("save auth state: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM auth_state`)
	if err != nil {
		return fmt.Errorf("clear auth state: %w", err)
	}
	return nil
}
