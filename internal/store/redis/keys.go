package redis

const (
	// DefaultKeyPrefix namespaces every key written by the repository.
	DefaultKeyPrefix = "marks:"

	keyBookmarks = "bookmarks"
	keyHistory   = "bookmarks:history"
)

// BookmarksKey returns the key holding the current collection document.
func BookmarksKey(prefix string) string {
	return prefix + keyBookmarks
}

// HistoryKey returns the key of the list holding previous documents, newest first.
func HistoryKey(prefix string) string {
	return prefix + keyHistory
}
