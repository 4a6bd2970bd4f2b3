// Package cache maps file handle ids to local copies of their bytes.
// Copied handles share bytes with the original, so they share its entry.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lherron/syncp/internal/domain"
)

// Entry is one cached file
type Entry struct {
	FileHandleID string `json:"file_handle_id"`
	Path         string `json:"path"`
	ContentMD5   string `json:"content_md5,omitempty"`
	ModifiedAt   string `json:"modified_at"`
}

// Cache is the file_cache table
type Cache struct {
	db *sql.DB
}

// New creates a cache over db
func New(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Add records path as the local copy of a file handle. The file must exist.
func (c *Cache) Add(ctx context.Context, fileHandleID, path, contentMD5 string) (*Entry, error) {
	if fileHandleID == "" {
		return nil, domain.NewValueError("file handle id is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return nil, domain.NewValueError("%s is a directory", abs)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO file_cache (file_handle_id, path, content_md5) VALUES (?, ?, ?)
		ON CONFLICT(file_handle_id) DO UPDATE SET
			path = excluded.path,
			content_md5 = excluded.content_md5,
			modified_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
	`, fileHandleID, abs, nullable(contentMD5))
	if err != nil {
		return nil, fmt.Errorf("failed to cache %s: %w", fileHandleID, err)
	}
	return c.Get(ctx, fileHandleID)
}

// Get returns the entry for a file handle, or a NotFoundError
func (c *Cache) Get(ctx context.Context, fileHandleID string) (*Entry, error) {
	var e Entry
	var md5 sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT file_handle_id, path, content_md5, modified_at FROM file_cache WHERE file_handle_id = ?
	`, fileHandleID).Scan(&e.FileHandleID, &e.Path, &md5, &e.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Resource: "cached file", ID: fileHandleID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", fileHandleID, err)
	}
	e.ContentMD5 = md5.String
	return &e, nil
}

// List returns every entry ordered by file handle id
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT file_handle_id, path, content_md5, modified_at FROM file_cache
		ORDER BY CAST(file_handle_id AS INTEGER), file_handle_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var md5 sql.NullString
		if err := rows.Scan(&e.FileHandleID, &e.Path, &md5, &e.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		e.ContentMD5 = md5.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Associate points newHandleID at the cached copy of originalHandleID. It
// does nothing when the original is not cached.
func (c *Cache) Associate(ctx context.Context, originalHandleID, newHandleID string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO file_cache (file_handle_id, path, content_md5)
		SELECT ?, path, content_md5 FROM file_cache WHERE file_handle_id = ?
		ON CONFLICT(file_handle_id) DO UPDATE SET
			path = excluded.path,
			content_md5 = excluded.content_md5,
			modified_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
	`, newHandleID, originalHandleID)
	if err != nil {
		return fmt.Errorf("failed to associate %s with %s: %w", newHandleID, originalHandleID, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
