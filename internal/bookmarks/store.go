// Package bookmarks owns the bookmark collection: URL normalization,
// duplicate detection, CRUD and import.
//
// Every operation loads the whole collection from the Repository and every
// mutation saves the whole collection back. One mutex serializes these
// read-modify-write cycles, which makes it the concurrency boundary of the
// process: two requests never interleave between load and save.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
)

// Repository persists the collection as one document.
type Repository interface {
	// Load returns the stored collection, domain.ErrNoCollection when nothing
	// was stored yet, or any other error when the blob cannot be read or decoded.
	Load(ctx context.Context) ([]domain.Bookmark, error)
	// Save overwrites the stored collection.
	Save(ctx context.Context, bookmarks []domain.Bookmark) error
	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error
}

// Store is the bookmark collection.
type Store struct {
	mu      sync.Mutex
	repo    Repository
	logger  logger.Logger
	metrics *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// NewStore creates a store over repo. m may be nil.
func NewStore(repo Repository, log logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		repo:    repo,
		logger:  log,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// List returns every bookmark in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	s.metrics.ObserveStoreOp("list", nil)
	return bookmarks, nil
}

// Add validates f, assigns an id and creation time, and appends the bookmark.
func (s *Store) Add(ctx context.Context, f domain.Fields) (bm domain.Bookmark, err error) {
	defer func() { s.metrics.ObserveStoreOp("add", err) }()

	rawURL := ""
	if f.URL != nil {
		rawURL = *f.URL
	}
	normalized, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return domain.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	if indexByURL(bookmarks, normalized, "") >= 0 {
		return domain.Bookmark{}, domain.NewConflictError(normalized)
	}

	bm = domain.Bookmark{
		ID:       s.freshID(bookmarks),
		URL:      normalized,
		Tags:     []string{},
		Category: domain.DefaultCategory,
		Created:  s.now(),
	}
	if f.Title != nil {
		bm.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		bm.Description = strings.TrimSpace(*f.Description)
	}
	if f.Tags != nil {
		bm.Tags = domain.CloneTags(*f.Tags)
	}
	if f.Category != nil {
		bm.Category = domain.CategoryOrDefault(*f.Category)
	}

	bookmarks = append(bookmarks, bm)
	if err := s.save(ctx, bookmarks); err != nil {
		return domain.Bookmark{}, err
	}

	s.logger.Debug("bookmark added",
		logger.String("id", bm.ID),
		logger.String("url", bm.URL))
	return bm, nil
}

// Update applies the fields present in f to the bookmark with the given id.
// id and Created never change. The collection is saved even when f is empty.
func (s *Store) Update(ctx context.Context, id string, f domain.Fields) (bm domain.Bookmark, err error) {
	defer func() { s.metrics.ObserveStoreOp("update", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	idx := indexByID(bookmarks, id)
	if idx < 0 {
		return domain.Bookmark{}, domain.NewNotFoundError(id)
	}
	bm = bookmarks[idx]

	if f.URL != nil {
		normalized, err := domain.NormalizeURL(*f.URL)
		if err != nil {
			return domain.Bookmark{}, err
		}
		if indexByURL(bookmarks, normalized, id) >= 0 {
			return domain.Bookmark{}, domain.NewConflictError(normalized)
		}
		bm.URL = normalized
	}
	if f.Title != nil {
		bm.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		bm.Description = strings.TrimSpace(*f.Description)
	}
	if f.Tags != nil {
		bm.Tags = domain.CloneTags(*f.Tags)
	}
	if f.Category != nil {
		bm.Category = domain.CategoryOrDefault(*f.Category)
	}

	bookmarks[idx] = bm
	if err := s.save(ctx, bookmarks); err != nil {
		return domain.Bookmark{}, err
	}
	return bm, nil
}

// Delete removes the bookmark with the given id. A missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObserveStoreOp("delete", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	kept, _ := removeIDs(bookmarks, map[string]struct{}{id: {}})
	return s.save(ctx, kept)
}

// BulkDelete removes every bookmark whose id is in ids and returns how many
// were removed. A nil ids is rejected: it means the caller sent no list.
func (s *Store) BulkDelete(ctx context.Context, ids []string) (removed int, err error) {
	defer func() { s.metrics.ObserveStoreOp("bulk_delete", err) }()

	if ids == nil {
		return 0, domain.NewValidationError("ids must be a list")
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	kept, removed := removeIDs(bookmarks, set)
	if err := s.save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Categories returns the sorted distinct categories in use.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	seen := make(map[string]struct{}, len(bookmarks))
	categories := make([]string, 0)
	for _, bm := range bookmarks {
		c := domain.CategoryOrDefault(bm.Category)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}
	sort.Strings(categories)

	s.metrics.ObserveStoreOp("categories", nil)
	return categories, nil
}

// Ping checks the underlying repository.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// load reads the collection. Any failure yields an empty collection so a
// corrupt or missing blob never takes the server down; the failure is logged
// and counted instead.
func (s *Store) load(ctx context.Context) []domain.Bookmark {
	bookmarks, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		if bookmarks == nil {
			bookmarks = []domain.Bookmark{}
		}
		return bookmarks
	case errors.Is(err, domain.ErrNoCollection):
		s.logger.Debug("no stored collection, starting empty")
	default:
		s.logger.Warn("failed to load bookmarks, using empty collection",
			logger.Error(err))
		s.metrics.LoadFallback()
	}
	return []domain.Bookmark{}
}

func (s *Store) save(ctx context.Context, bookmarks []domain.Bookmark) error {
	if err := s.repo.Save(ctx, bookmarks); err != nil {
		s.logger.Error("failed to save bookmarks", logger.Error(err))
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	s.metrics.SetBookmarks(len(bookmarks))
	return nil
}

// freshID returns an id not used by any bookmark in the collection.
func (s *Store) freshID(bookmarks []domain.Bookmark) string {
	for {
		id := s.newID()
		if indexByID(bookmarks, id) < 0 {
			return id
		}
	}
}

// indexByURL returns the index of the bookmark sharing u's dedup key,
// ignoring the bookmark whose id is exclude.
func indexByURL(bookmarks []domain.Bookmark, u, exclude string) int {
	key := domain.DedupKey(u)
	for i, bm := range bookmarks {
		if bm.ID == exclude && exclude != "" {
			continue
		}
		if domain.DedupKey(bm.URL) == key {
			return i
		}
	}
	return -1
}

func indexByID(bookmarks []domain.Bookmark, id string) int {
	for i, bm := range bookmarks {
		if bm.ID == id {
			return i
		}
	}
	return -1
}

// removeIDs filters in place, keeping order.
func removeIDs(bookmarks []domain.Bookmark, ids map[string]struct{}) ([]domain.Bookmark, int) {
	kept := bookmarks[:0]
	for _, bm := range bookmarks {
		if _, drop := ids[bm.ID]; drop {
			continue
		}
		kept = append(kept, bm)
	}
	return kept, len(bookmarks) - len(kept)
}
