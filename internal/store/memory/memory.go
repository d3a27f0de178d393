// Package memory keeps the bookmark collection in process memory.
// Nothing survives a restart; it backs MARKS_STORAGE=memory and tests.
package memory

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

type Repository struct {
	mu        sync.Mutex
	bookmarks []domain.Bookmark
	stored    bool

	// LoadErr and SaveErr, when set, are returned by Load and Save.
	LoadErr error
	SaveErr error
	// Saves counts successful Save calls.
	Saves int
}

func New() *Repository {
	return &Repository{}
}

// NewWith returns a repository already holding bookmarks.
func NewWith(bookmarks []domain.Bookmark) *Repository {
	return &Repository{bookmarks: clone(bookmarks), stored: true}
}

func (r *Repository) Load(_ context.Context) ([]domain.Bookmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.LoadErr != nil {
		return nil, r.LoadErr
	}
	if !r.stored {
		return nil, domain.ErrNoCollection
	}
	return clone(r.bookmarks), nil
}

func (r *Repository) Save(_ context.Context, bookmarks []domain.Bookmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.bookmarks = clone(bookmarks)
	r.stored = true
	r.Saves++
	return nil
}

func (r *Repository) Ping(_ context.Context) error { return nil }

// Snapshot returns a copy of the stored collection.
func (r *Repository) Snapshot() []domain.Bookmark {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.bookmarks)
}

func clone(in []domain.Bookmark) []domain.Bookmark {
	out := make([]domain.Bookmark, len(in))
	for i, bm := range in {
		bm.Tags = domain.CloneTags(bm.Tags)
		out[i] = bm
	}
	return out
}
