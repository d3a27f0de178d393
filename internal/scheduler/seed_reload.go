package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/bookmarks"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// SeedCategory is used for seed bookmarks declared outside any group.
const SeedCategory = "Homepage"

// SeedSource yields partial bookmarks to import.
type SeedSource interface {
	Path() string
	Bookmarks() ([]domain.Bookmark, error)
}

// Importer appends partial bookmarks, skipping known URLs.
type Importer interface {
	ImportBookmarks(ctx context.Context, incoming []domain.Bookmark, defaultCategory string) (bookmarks.ImportResult, error)
}

// SeedReloader imports a seed source on start, periodically and on demand.
// Imports rely on URL dedup, so reloading an unchanged source adds nothing
// and bookmarks deleted by the user come back only if the source still lists them.
type SeedReloader struct {
	source        SeedSource
	store         Importer
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	wg            sync.WaitGroup
}

// NewSeedReloader creates a new seed reloader
func NewSeedReloader(
	source SeedSource,
	store Importer,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SeedReloader {
	return &SeedReloader{
		source:        source,
		store:         store,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports the source once, then keeps reloading in the background.
// The background loop runs even when the initial import fails; that error
// is returned so the caller can report it.
func (sr *SeedReloader) Start(ctx context.Context) error {
	initialErr := sr.Reload(ctx)
	if initialErr != nil {
		initialErr = fmt.Errorf("initial seed import failed: %w", initialErr)
	}

	sr.wg.Add(1)
	go func() {
		defer sr.wg.Done()

		var tick <-chan time.Time
		if sr.interval > 0 {
			ticker := time.NewTicker(sr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				sr.reloadLogged(ctx)
			case <-sr.manualTrigger:
				sr.logger.Info("manual seed reload triggered")
				sr.reloadLogged(ctx)
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return initialErr
}

// Stop stops the reloader and waits for an in-flight import to finish.
func (sr *SeedReloader) Stop() {
	sr.stopOnce.Do(func() { close(sr.stopCh) })
	sr.wg.Wait()
}

// Reload imports the current content of the seed source.
func (sr *SeedReloader) Reload(ctx context.Context) error {
	sr.logger.Info("importing seed bookmarks",
		logger.String("file", sr.source.Path()))

	incoming, err := sr.source.Bookmarks()
	if err != nil {
		return fmt.Errorf("failed to load seed bookmarks: %w", err)
	}

	res, err := sr.store.ImportBookmarks(ctx, incoming, SeedCategory)
	if err != nil {
		return fmt.Errorf("failed to import seed bookmarks: %w", err)
	}

	sr.logger.Info("seed bookmarks imported",
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped))
	return nil
}

func (sr *SeedReloader) reloadLogged(ctx context.Context) {
	if err := sr.Reload(ctx); err != nil {
		sr.logger.Error("failed to reload seed bookmarks", logger.Error(err))
	}
}
