package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// DefaultHistory is the number of previous documents kept after each save.
const DefaultHistory = 10

// Repository stores the collection as one JSON document in a Redis string.
type Repository struct {
	client  *redis.Client
	prefix  string
	history int
	log     logger.Logger
}

// NewRepository creates a Redis repository. An empty prefix uses DefaultKeyPrefix;
// history <= 0 disables snapshots.
func NewRepository(client *redis.Client, prefix string, history int, log logger.Logger) *Repository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Repository{
		client:  client,
		prefix:  prefix,
		history: history,
		log:     log,
	}
}

// Load returns domain.ErrNoCollection when the key does not exist. When the
// document cannot be decoded, the newest decodable snapshot is returned
// instead; the next Save then overwrites the damaged document.
func (r *Repository) Load(ctx context.Context) ([]domain.Bookmark, error) {
	data, err := r.client.Get(ctx, BookmarksKey(r.prefix)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoCollection
		}
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks, decodeErr := decode(data)
	if decodeErr == nil {
		return bookmarks, nil
	}
	decodeErr = fmt.Errorf("failed to unmarshal bookmarks: %w", decodeErr)

	snapshots, err := r.snapshots(ctx)
	if err != nil {
		return nil, errors.Join(decodeErr, err)
	}
	bookmarks, age, ok := newestDecodable(snapshots)
	if !ok {
		return nil, decodeErr
	}
	r.log.Warn("bookmarks document unreadable, restored from history",
		logger.Error(decodeErr),
		logger.Int("snapshot", age),
		logger.Int("bookmarks", len(bookmarks)))
	return bookmarks, nil
}

// Save replaces the document and pushes it onto the capped history list in
// one transaction.
func (r *Repository) Save(ctx context.Context, bookmarks []domain.Bookmark) error {
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	data, err := json.MarshalIndent(bookmarks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, BookmarksKey(r.prefix), data, 0)
	if r.history > 0 {
		pipe.LPush(ctx, HistoryKey(r.prefix), data)
		pipe.LTrim(ctx, HistoryKey(r.prefix), 0, int64(r.history-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// snapshots returns the saved documents, newest first.
func (r *Repository) snapshots(ctx context.Context) ([]string, error) {
	if r.history <= 0 {
		return nil, nil
	}
	docs, err := r.client.LRange(ctx, HistoryKey(r.prefix), 0, int64(r.history-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return docs, nil
}

// newestDecodable returns the first document of docs that decodes and its
// index.
func newestDecodable(docs []string) ([]domain.Bookmark, int, bool) {
	for i, doc := range docs {
		if bookmarks, err := decode([]byte(doc)); err == nil {
			return bookmarks, i, true
		}
	}
	return nil, 0, false
}

func decode(data []byte) ([]domain.Bookmark, error) {
	var bookmarks []domain.Bookmark
	if err := json.Unmarshal(data, &bookmarks); err != nil {
		return nil, err
	}
	for i := range bookmarks {
		if bookmarks[i].Tags == nil {
			bookmarks[i].Tags = []string{}
		}
	}
	return bookmarks, nil
}
