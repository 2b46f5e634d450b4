package index

import (
	"fmt"
	"time"

	"github.com/starford/meshdesk/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Index    int    `json:"index"`
	FileName string `json:"fileName"`
	Problem  string `json:"problem"`
	Class    string `json:"class"`
	Snippet  string `json:"snippet"`
}

// ReplaceEntries makes the index hold exactly entries, keyed by position.
func (db *DB) ReplaceEntries(entries []models.FileEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	if len(entries) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO entries (position, file_name, problem, class, object_key, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare entry insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for i, e := range entries {
			if _, err := stmt.Exec(i, e.FileName, e.Problem, e.Class, e.FileObject.Key, now); err != nil {
				return fmt.Errorf("index: insert entry %d: %w", i, err)
			}
			if err := ftsUpsert(tx, i, e); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// UpdateEntry rewrites the annotations of the entry at position index.
func (db *DB) UpdateEntry(index int, e models.FileEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE entries
		SET problem = ?, class = ?, updated_at = ?
		WHERE position = ?
	`, e.Problem, e.Class, time.Now().UTC(), index)
	if err != nil {
		return fmt.Errorf("index: update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: update entry: no row at position %d", index)
	}
	if err := ftsUpsert(tx, index, e); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of indexed entries.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
