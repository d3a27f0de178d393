package bookmarks

import (
	"context"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/netscape"
)

// ImportResult summarizes an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Import parses a Netscape bookmark file and appends every bookmark whose URL
// is not already stored. Imported bookmarks land in domain.ImportedCategory.
func (s *Store) Import(ctx context.Context, content string) (ImportResult, error) {
	parsed := netscape.Parse(content)
	if len(parsed) == 0 {
		err := domain.NewValidationError("no bookmarks found in file")
		s.metrics.ObserveStoreOp("import", err)
		return ImportResult{}, err
	}
	return s.ImportBookmarks(ctx, parsed, domain.ImportedCategory)
}

// ImportBookmarks appends partial bookmarks, skipping any whose URL matches a
// stored bookmark or an earlier entry of the same batch. Incoming URLs are
// not validated beyond scheme prefixing. A blank category becomes
// defaultCategory. The collection is saved once.
func (s *Store) ImportBookmarks(ctx context.Context, incoming []domain.Bookmark, defaultCategory string) (res ImportResult, err error) {
	defer func() { s.metrics.ObserveStoreOp("import", err) }()

	res.Total = len(incoming)

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks := s.load(ctx)
	seen := make(map[string]struct{}, len(bookmarks)+len(incoming))
	for _, bm := range bookmarks {
		seen[domain.DedupKey(bm.URL)] = struct{}{}
	}

	for _, in := range incoming {
		u := domain.WithScheme(strings.TrimSpace(in.URL))
		key := domain.DedupKey(u)
		if _, dup := seen[key]; dup {
			res.Skipped++
			continue
		}
		seen[key] = struct{}{}

		bm := domain.Bookmark{
			ID:          s.freshID(bookmarks),
			Title:       strings.TrimSpace(in.Title),
			URL:         u,
			Description: strings.TrimSpace(in.Description),
			Tags:        domain.CloneTags(in.Tags),
			Category:    strings.TrimSpace(in.Category),
			Created:     in.Created,
		}
		if bm.Category == "" {
			bm.Category = defaultCategory
		}
		if bm.Created.IsZero() {
			bm.Created = s.now()
		}
		bookmarks = append(bookmarks, bm)
		res.Imported++
	}

	if err := s.save(ctx, bookmarks); err != nil {
		return ImportResult{}, err
	}

	s.metrics.ObserveImport(res.Imported, res.Skipped)
	s.logger.Info("bookmarks imported",
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped),
		logger.Int("total", res.Total))
	return res, nil
}
