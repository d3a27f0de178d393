// Package file persists the bookmark collection as one indented JSON document.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Repository reads and writes the collection at Path.
type Repository struct {
	path string
}

// New returns a repository backed by the JSON file at path.
func New(path string) *Repository {
	return &Repository{path: path}
}

// Path returns the backing file path.
func (r *Repository) Path() string { return r.path }

// Load decodes the file. A missing file yields domain.ErrNoCollection.
func (r *Repository) Load(_ context.Context) ([]domain.Bookmark, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNoCollection
		}
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}

	var bookmarks []domain.Bookmark
	if err := json.Unmarshal(data, &bookmarks); err != nil {
		return nil, fmt.Errorf("failed to decode bookmarks file: %w", err)
	}
	for i := range bookmarks {
		if bookmarks[i].Tags == nil {
			bookmarks[i].Tags = []string{}
		}
	}
	return bookmarks, nil
}

// Save writes the whole collection to a temp file in the same directory and
// renames it over the target, so readers never see a half-written document.
func (r *Repository) Save(_ context.Context, bookmarks []domain.Bookmark) error {
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(bookmarks); err != nil {
		return fmt.Errorf("failed to encode bookmarks: %w", err)
	}
	data := buf.Bytes()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write bookmarks: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync bookmarks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace bookmarks file: %w", err)
	}
	return nil
}

// Ping checks that the data directory exists or can be created.
func (r *Repository) Ping(_ context.Context) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}
