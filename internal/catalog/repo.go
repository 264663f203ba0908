package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/fsdriver/internal/apperr"
	"github.com/starford/fsdriver/internal/models"
)

const defaultListLimit = 100

// Upsert inserts or replaces the row for m.Path.
func (db *DB) Upsert(m models.ObjectMetadata) error {
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO objects (path, size, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size       = excluded.size,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, m.Path, m.Size, m.Checksum, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert: %w", err)
	}
	return nil
}

// DeletePrefix removes path and every row beneath it. An empty path clears
// the catalog.
func (db *DB) DeletePrefix(path string) error {
	if path == "" {
		_, err := db.conn.Exec(`DELETE FROM objects`)
		if err != nil {
			return fmt.Errorf("catalog: delete all: %w", err)
		}
		return nil
	}
	_, err := db.conn.Exec(`DELETE FROM objects WHERE path = ? OR path LIKE ? ESCAPE '\'`,
		path, escapeLike(path)+"/%")
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", path, err)
	}
	return nil
}

// Get returns the row for path or apperr.ErrNotFound.
func (db *DB) Get(path string) (*models.ObjectMetadata, error) {
	var m models.ObjectMetadata
	err := db.conn.QueryRow(`SELECT path, size, checksum, updated_at FROM objects WHERE path = ?`, path).
		Scan(&m.Path, &m.Size, &m.Checksum, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return &m, nil
}

// List returns rows whose path starts with prefix, ordered by path, plus
// the total number of matches.
func (db *DB) List(prefix string, limit, offset int) ([]models.ObjectMetadata, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	like := escapeLike(prefix) + "%"

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM objects WHERE path LIKE ? ESCAPE '\'`, like).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, size, checksum, updated_at
		FROM objects
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ? OFFSET ?
	`, like, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	out := []models.ObjectMetadata{}
	for rows.Next() {
		var m models.ObjectMetadata
		if err := rows.Scan(&m.Path, &m.Size, &m.Checksum, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path -> checksum for every row.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM objects`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
