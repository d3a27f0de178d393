package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/bookmarks"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/store/memory"
)

type fakeSource struct {
	mu        sync.Mutex
	bookmarks []domain.Bookmark
	err       error
}

func (f *fakeSource) Path() string { return "fake.yaml" }

func (f *fakeSource) Bookmarks() ([]domain.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Bookmark(nil), f.bookmarks...), nil
}

func (f *fakeSource) set(bms []domain.Bookmark, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookmarks, f.err = bms, err
}

func waitForCount(t *testing.T, repo *memory.Repository, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(repo.Snapshot()) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("stored %d bookmarks, want %d", len(repo.Snapshot()), want)
}

func TestSeedReloaderStartImports(t *testing.T) {
	repo := memory.New()
	store := bookmarks.NewStore(repo, logger.NewNop(), nil)
	src := &fakeSource{bookmarks: []domain.Bookmark{
		{Title: "Github", URL: "https://github.com/", Category: "Developer"},
		{Title: "Loose", URL: "loose.example"},
	}}

	sr := NewSeedReloader(src, store, logger.NewNop(), time.Hour, make(chan struct{}, 1))
	if err := sr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sr.Stop()

	got := repo.Snapshot()
	if len(got) != 2 {
		t.Fatalf("stored %d bookmarks, want 2", len(got))
	}
	if got[0].Category != "Developer" || got[1].Category != SeedCategory {
		t.Errorf("categories = %q, %q", got[0].Category, got[1].Category)
	}
	if got[1].URL != "https://loose.example" {
		t.Errorf("url = %q, want scheme prefixed", got[1].URL)
	}
}

func TestSeedReloaderManualTrigger(t *testing.T) {
	repo := memory.New()
	store := bookmarks.NewStore(repo, logger.NewNop(), nil)
	src := &fakeSource{bookmarks: []domain.Bookmark{{Title: "A", URL: "https://a.example"}}}
	trigger := make(chan struct{}, 1)

	sr := NewSeedReloader(src, store, logger.NewNop(), 0, trigger)
	if err := sr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sr.Stop()

	src.set([]domain.Bookmark{
		{Title: "A", URL: "https://A.example/"},
		{Title: "B", URL: "https://b.example"},
	}, nil)
	trigger <- struct{}{}

	waitForCount(t, repo, 2)
}

func TestSeedReloaderInitialFailure(t *testing.T) {
	repo := memory.New()
	store := bookmarks.NewStore(repo, logger.NewNop(), nil)
	boom := errors.New("boom")
	src := &fakeSource{err: boom}
	trigger := make(chan struct{}, 1)

	sr := NewSeedReloader(src, store, logger.NewNop(), 0, trigger)
	err := sr.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want wrapped boom", err)
	}
	defer sr.Stop()

	// The loop keeps running and picks up a fixed source.
	src.set([]domain.Bookmark{{URL: "https://fixed.example"}}, nil)
	trigger <- struct{}{}
	waitForCount(t, repo, 1)
}

func TestSeedReloaderStopIsIdempotent(t *testing.T) {
	store := bookmarks.NewStore(memory.New(), logger.NewNop(), nil)
	sr := NewSeedReloader(&fakeSource{bookmarks: []domain.Bookmark{{URL: "a.example"}}}, store, logger.NewNop(), time.Hour, nil)
	if err := sr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sr.Stop()
	sr.Stop()
}
