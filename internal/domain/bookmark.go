package domain

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	// DefaultCategory is assigned when a bookmark is created or updated without a category.
	DefaultCategory = "Uncategorized"
	// ImportedCategory is assigned to bookmarks that arrive through an import.
	ImportedCategory = "Imported"
	// UntitledTitle is used by the importer when an anchor has no text.
	UntitledTitle = "Untitled"
)

// Bookmark is a saved URL.
//
// The JSON field order is the on-disk key order of the persisted document.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is assigned by the store on creation and never changes.
	ID string `json:"id"`

	// ─────────────────────────────
	// User data
	// ─────────────────────────────

	// Title is free text, trimmed.
	Title string `json:"title"`

	// URL is the normalized absolute URL.
	// Unique across the collection by DedupKey.
	URL string `json:"url"`

	// Description is optional free text, trimmed.
	Description string `json:"description"`

	// Tags keeps insertion order. Never nil once stored.
	Tags []string `json:"tags"`

	// Category defaults to DefaultCategory.
	Category string `json:"category"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// Created is set once by the store.
	Created time.Time `json:"created"`
}

// createdLayouts are the accepted forms of "created", tried in order.
// Zone-less timestamps (older documents wrote local ISO-8601 without offset)
// are read as UTC.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseCreated reads a stored creation timestamp.
func ParseCreated(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnmarshalJSON accepts any layout of ParseCreated for "created". A missing,
// null or unreadable timestamp leaves Created zero instead of failing the
// whole document. Marshaling is unchanged and always writes RFC 3339.
func (b *Bookmark) UnmarshalJSON(data []byte) error {
	type plain Bookmark
	aux := struct {
		*plain
		Created json.RawMessage `json:"created"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	b.Created = time.Time{}
	var raw string
	if len(aux.Created) > 0 && json.Unmarshal(aux.Created, &raw) == nil {
		if t, ok := ParseCreated(raw); ok {
			b.Created = t
		}
	}
	return nil
}

// Fields carries a partial bookmark. A nil pointer means the field was absent.
type Fields struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,max=1024"`
	URL         *string   `json:"url,omitempty" validate:"omitempty,max=4096"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=8192"`
	Tags        *[]string `json:"tags,omitempty" validate:"omitempty,dive,max=128"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,max=256"`
}

// CategoryOrDefault returns the category or DefaultCategory when blank.
func CategoryOrDefault(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return DefaultCategory
}

// CloneTags returns a non-nil copy of tags.
func CloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
