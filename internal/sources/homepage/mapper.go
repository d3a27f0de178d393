package homepage

import (
	"errors"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// SourceTag marks every bookmark coming from Homepage.
const SourceTag = "homepage"

// ErrNoBookmarks is returned when a config holds no usable entry.
var ErrNoBookmarks = errors.New("no valid bookmarks found in config")

// MapBookmarks converts a Homepage config into partial bookmarks: the group
// becomes the category, the bookmark name (or abbr) the title. Entries
// without an href are dropped. Keys of each YAML mapping are visited in
// sorted order so the output is stable.
func MapBookmarks(config BookmarksConfig) ([]domain.Bookmark, error) {
	bookmarks := make([]domain.Bookmark, 0)

	for _, group := range config {
		for _, groupName := range sortedKeys(group) {
			for _, bookmarkMap := range group[groupName] {
				for _, name := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[name]
					if len(entries) == 0 {
						continue
					}
					entry := entries[0]

					href := strings.TrimSpace(entry.Href)
					if href == "" {
						continue
					}

					title := strings.TrimSpace(name)
					if title == "" {
						title = strings.TrimSpace(entry.Abbr)
					}

					bookmarks = append(bookmarks, domain.Bookmark{
						Title:       title,
						URL:         href,
						Description: strings.TrimSpace(entry.Description),
						Tags:        []string{SourceTag},
						Category:    strings.TrimSpace(groupName),
					})
				}
			}
		}
	}

	if len(bookmarks) == 0 {
		return nil, ErrNoBookmarks
	}
	return bookmarks, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source loads a bookmarks.yaml file and maps it in one step.
type Source struct {
	loader *Loader
}

// NewSource creates a seed source for the given bookmarks.yaml path.
func NewSource(filePath string) *Source {
	return &Source{loader: NewLoader(filePath)}
}

// Path returns the file the source reads.
func (s *Source) Path() string { return s.loader.Path() }

// Bookmarks returns the partial bookmarks declared in the file.
func (s *Source) Bookmarks() ([]domain.Bookmark, error) {
	config, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	return MapBookmarks(config)
}
