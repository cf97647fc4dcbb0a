package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/FalkoBaeker/tonie-app/internal/adapters/storage/memory"
	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// failingStorage rejects every listing write.
type failingStorage struct {
	*storagemem.Storage
}

func (f *failingStorage) SaveListings(ctx context.Context, itemID, source string, listings []models.MarketListing) (int, error) {
	return 0, errors.New("disk full")
}

// blockingSource parks every fetch until released, so tests can observe a
// run mid-flight.
type blockingSource struct {
	started sync.Once
	ready   chan struct{}
	release chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{ready: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSource) Name() string { return models.SourceSoldPages }

func (b *blockingSource) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	b.started.Do(func() { close(b.ready) })
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil, ctx.Err()
}

func TestRefreshRunProcessesCatalog(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}
	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())

	svc := NewRefreshService(testCatalog(), storage, ingester, market, testLogger())

	run, err := svc.Run(ctx, RefreshOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 3, run.Successful)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, 6, run.SavedRows)
	assert.Len(t, run.RunID, 12)
	require.NotNil(t, run.FinishedAt)

	persisted, err := storage.GetRunState(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, run.RunID, persisted.RunID)
	assert.Equal(t, models.RunStatusCompleted, persisted.Status)
}

func TestRefreshRunClampsMaxItems(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}
	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())
	svc := NewRefreshService(testCatalog(), storage, ingester, market, testLogger())

	// A small explicit cap is floored at 10, not replaced by the default.
	run, err := svc.Run(ctx, RefreshOptions{MaxItems: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, run.MaxItems)

	// Unset falls back to the configured default.
	run, err = svc.Run(ctx, RefreshOptions{})
	require.NoError(t, err)
	assert.Equal(t, market.RefreshMaxItems, run.MaxItems)
}

func TestRefreshRunRecordsItemFailures(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{Storage: storagemem.New()}
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}
	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())

	svc := NewRefreshService(testCatalog(), storage, ingester, market, testLogger())

	run, err := svc.Run(ctx, RefreshOptions{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompletedWithErrors, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 2, run.Failed)
	assert.Len(t, run.Failures, 2)
}

func TestRefreshRunConflict(t *testing.T) {
	storage := storagemem.New()
	src := newBlockingSource()
	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())

	svc := NewRefreshService(testCatalog(), storage, ingester, market, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Run(ctx, RefreshOptions{Limit: 1})
	}()

	<-src.ready
	assert.True(t, svc.Running())

	_, err := svc.Run(context.Background(), RefreshOptions{})
	assert.ErrorIs(t, err, ErrRefreshConflict)

	close(src.release)
	<-done
	assert.False(t, svc.Running())
}

func TestRefreshRunCancellationLeavesTerminalState(t *testing.T) {
	storage := storagemem.New()
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}
	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())

	svc := NewRefreshService(testCatalog(), storage, ingester, market, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := svc.Run(ctx, RefreshOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.RunStatusCompletedWithErrors, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 0, run.Processed)

	persisted, perr := storage.GetRunState(context.Background())
	require.NoError(t, perr)
	require.NotNil(t, persisted)
	assert.Equal(t, models.RunStatusCompletedWithErrors, persisted.Status)

	// The run lock is released after a canceled run.
	assert.False(t, svc.Running())
}

// Delay between items must be interruptible.
func TestRefreshRunDelayRespectsCancel(t *testing.T) {
	storage := storagemem.New()
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}
	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())

	svc := NewRefreshService(testCatalog(), storage, ingester, market, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan models.RefreshRun, 1)
	go func() {
		run, _ := svc.Run(ctx, RefreshOptions{Delay: time.Hour})
		done <- run
	}()

	// The first item finishes quickly, then the delay starts.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case run := <-done:
		assert.Equal(t, models.RunStatusCompletedWithErrors, run.Status)
		assert.GreaterOrEqual(t, run.Processed, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
