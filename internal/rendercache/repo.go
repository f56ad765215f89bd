package rendercache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// cachedDocument is the stored form of a Document. It keeps the fields the
// JSON view hides.
type cachedDocument struct {
	models.Document
	SourcePath string `json:"source_path"`
	Content    string `json:"content"`
}

// Get returns the document cached for path if it was stored under sum.
// A miss or a stale checksum yields apperr.ErrNotFound.
func (db *DB) Get(path, sum string) (*models.Document, error) {
	var stored, raw string
	err := db.conn.QueryRow(`SELECT checksum, document FROM documents WHERE path = ?`, path).Scan(&stored, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rendercache: get %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("rendercache: get %s: %w", path, err)
	}
	if stored != sum {
		return nil, fmt.Errorf("rendercache: get %s: stale: %w", path, apperr.ErrNotFound)
	}

	var cd cachedDocument
	if err := json.Unmarshal([]byte(raw), &cd); err != nil {
		return nil, fmt.Errorf("rendercache: decode %s: %w", path, err)
	}
	doc := cd.Document
	doc.SourcePath = cd.SourcePath
	doc.Content = cd.Content
	return &doc, nil
}

// Put stores doc for path under sum, replacing any previous row.
func (db *DB) Put(path, sum string, doc *models.Document) error {
	raw, err := json.Marshal(cachedDocument{Document: *doc, SourcePath: doc.SourcePath, Content: doc.Content})
	if err != nil {
		return fmt.Errorf("rendercache: encode %s: %w", path, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO documents (path, checksum, document, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			document   = excluded.document,
			updated_at = excluded.updated_at
	`, path, sum, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("rendercache: put %s: %w", path, err)
	}
	return nil
}

// Delete removes the row for path. Deleting a missing row is not an error.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("rendercache: delete %s: %w", path, err)
	}
	return nil
}

// Prune deletes every row whose path is not in keep and returns how many
// were removed.
func (db *DB) Prune(keep []string) (int, error) {
	paths, err := db.Paths()
	if err != nil {
		return 0, err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, p := range keep {
		keepSet[p] = struct{}{}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("rendercache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`DELETE FROM documents WHERE path = ?`)
	if err != nil {
		return 0, fmt.Errorf("rendercache: prepare prune: %w", err)
	}
	defer stmt.Close()

	n := 0
	for p := range paths {
		if _, ok := keepSet[p]; ok {
			continue
		}
		if _, err := stmt.Exec(p); err != nil {
			return 0, fmt.Errorf("rendercache: prune %s: %w", p, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("rendercache: commit prune: %w", err)
	}
	return n, nil
}

// Paths returns every cached path.
func (db *DB) Paths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("rendercache: paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("rendercache: scan path: %w", err)
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}
