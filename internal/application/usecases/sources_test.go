package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/FalkoBaeker/tonie-app/internal/adapters/storage/memory"
	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// queryFakeSource returns rows per query and errors for queries it does not
// know.
type queryFakeSource struct {
	name    string
	byQuery map[string][]models.MarketListing
}

func (q *queryFakeSource) Name() string { return q.name }

func (q *queryFakeSource) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	rows, ok := q.byQuery[query]
	if !ok {
		return nil, errors.New("blocked")
	}
	return append([]models.MarketListing(nil), rows...), nil
}

func TestFetchMultiStopsAtMaxItems(t *testing.T) {
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19, 20)}

	rows := FetchMulti(context.Background(), testLogger(), src, []string{"a", "b", "c"}, 2)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, src.callCount())
}

func TestFetchMultiSkipsFailingQueries(t *testing.T) {
	src := &queryFakeSource{
		name: models.SourceSoldPages,
		byQuery: map[string][]models.MarketListing{
			"Tonie Schatz": soldListings(18, 19),
		},
	}

	rows := FetchMulti(context.Background(), testLogger(), src, []string{"blocked query", "Tonie Schatz"}, 10)
	assert.Len(t, rows, 2)
}

func TestFetchMultiDeduplicatesAcrossQueries(t *testing.T) {
	same := soldListings(18, 19)
	src := &queryFakeSource{
		name: models.SourceSoldPages,
		byQuery: map[string][]models.MarketListing{
			"a": same,
			"b": same,
		},
	}

	rows := FetchMulti(context.Background(), testLogger(), src, []string{"a", "b"}, 10)
	assert.Len(t, rows, 2)
}

func TestApplyTimeWindow(t *testing.T) {
	old := time.Now().UTC().AddDate(0, 0, -120)
	recent := time.Now().UTC().AddDate(0, 0, -5)

	listings := []models.MarketListing{
		{Title: "alt", Price: 10, SoldAt: &old},
		{Title: "frisch", Price: 11, SoldAt: &recent},
		{Title: "ohne datum", Price: 12},
	}

	got := ApplyTimeWindow(listings, 90)
	require.Len(t, got, 2)
	assert.Equal(t, "frisch", got[0].Title)
	assert.Equal(t, "ohne datum", got[1].Title)

	assert.Len(t, ApplyTimeWindow(listings, 0), 3)
}

func TestIngestItemToleratesOneFailingSource(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	good := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}
	bad := &fakeSource{name: models.SourceClassifieds, err: errors.New("challenge page")}

	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{good, bad}, market, testLogger())

	item, ok := testCatalog().ByID("tn_002")
	require.True(t, ok)

	saved, err := ingester.IngestItem(ctx, item, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
}

func TestIngestItemFailsWhenAllSourcesFail(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{Storage: storagemem.New()}
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19)}

	market := config.Default().Market
	ingester := NewIngester(storage, []ports.SourcePort{src}, market, testLogger())

	item, ok := testCatalog().ByID("tn_002")
	require.True(t, ok)

	_, err := ingester.IngestItem(ctx, item, 40)
	assert.Error(t, err)
}
