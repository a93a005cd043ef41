package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	url      TEXT NOT NULL,
	poster   TEXT NOT NULL DEFAULT '',
	author   TEXT NOT NULL DEFAULT ''
);`

// DB is a SQLite-backed catalog source.
type DB struct {
	db   *sql.DB
	path string
}

// OpenDB opens (creating if needed) the catalog database at path.
func OpenDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Catalog database opened")
	return &DB{db: db, path: path}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Load reads all tracks ordered by position.
func (d *DB) Load() (*Catalog, error) {
	rows, err := d.db.Query(`SELECT id, name, url, poster, author FROM tracks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.Name, &t.URL, &t.Poster, &t.Author); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracks: %w", err)
	}

	return New(tracks)
}

// Save replaces the stored tracks with the contents of c.
func (d *DB) Save(c *Catalog) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracks`); err != nil {
		return fmt.Errorf("failed to clear tracks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tracks (position, id, name, url, poster, author) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range c.tracks {
		if _, err := stmt.Exec(i, t.ID, t.Name, t.URL, t.Poster, t.Author); err != nil {
			return fmt.Errorf("failed to insert track %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracks: %w", err)
	}

	log.Info().Str("path", d.path).Int("tracks", len(c.tracks)).Msg("Catalog saved")
	return nil
}

// LoadSQLite opens the database at path, loads the catalog, and closes it.
func LoadSQLite(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog database not found: %w", err)
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.Load()
}

// Load picks a loader from the file extension. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	switch filepath.Ext(path) {
	case "":
		if path == "" {
			return Default(), nil
		}
		return nil, fmt.Errorf("unrecognized catalog file %q", path)
	case ".json":
		return LoadJSON(path)
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path)
	default:
		return nil, fmt.Errorf("unrecognized catalog file %q", path)
	}
}
