package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FalkoBaeker/tonie-app/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Item{
		{
			ID:     "tn_001",
			Title:  "Benjamin Blümchen - Gute Nacht Geschichten",
			Series: "Benjamin Blümchen",
		},
		{
			ID:      "tn_002",
			Title:   "Bibi & Tina - Der verschwundene Schatz",
			Series:  "Bibi und Tina",
			Aliases: []string{"Bibi und Tina Schatz"},
		},
		{
			ID:     "tn_003",
			Title:  "Bibi & Tina - Das Fohlen",
			Series: "Bibi und Tina",
		},
		{
			ID:                "tn_005",
			Title:             "Forest Tales - The Lost Fox",
			Aliases:           []string{"Lost Fox"},
			AvailabilityState: "endOfLife",
		},
	})
}

func TestResolveByID(t *testing.T) {
	r := New(testCatalog())

	for _, query := range []string{"tn_002", "tn2", "tn 2", "TN_002"} {
		res := r.Resolve(query)
		require.Equal(t, StatusResolved, res.Status, query)
		require.Len(t, res.Candidates, 1, query)
		assert.Equal(t, "tn_002", res.Candidates[0].ItemID, query)
		assert.Equal(t, 1.0, res.Candidates[0].Score, query)
	}

	res := r.Resolve("tn_999")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Empty(t, res.Candidates)
}

func TestResolveExactTitle(t *testing.T) {
	r := New(testCatalog())

	res := r.Resolve("Bibi & Tina - Der verschwundene Schatz")
	require.Equal(t, StatusResolved, res.Status)
	assert.Equal(t, "tn_002", res.Candidates[0].ItemID)
}

func TestResolveExactAlias(t *testing.T) {
	r := New(testCatalog())

	res := r.Resolve("Lost Fox")
	require.Equal(t, StatusResolved, res.Status)
	assert.Equal(t, "tn_005", res.Candidates[0].ItemID)
}

func TestResolveAliasCollisionNeedsConfirmation(t *testing.T) {
	c := catalog.New([]catalog.Item{
		{ID: "tn_101", Title: "Unser Sandmännchen - Abendlieder", Aliases: []string{"Sandmännchen"}},
		{ID: "tn_102", Title: "Unser Sandmännchen - Schlaflieder", Aliases: []string{"Sandmännchen"}},
	})
	r := New(c)

	res := r.Resolve("Sandmännchen")
	require.Equal(t, StatusNeedsConfirmation, res.Status)
	assert.Len(t, res.Candidates, 2)
}

func TestResolveGenericQueryNotFound(t *testing.T) {
	r := New(testCatalog())

	for _, query := range []string{"tonie figur", "tonie", "x"} {
		res := r.Resolve(query)
		assert.Equal(t, StatusNotFound, res.Status, query)
		assert.Empty(t, res.Candidates, query)
	}
}

func TestResolveFuzzySpecificQuery(t *testing.T) {
	r := New(testCatalog())

	res := r.Resolve("verschwundene schatz bibi")
	require.Equal(t, StatusResolved, res.Status)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "tn_002", res.Candidates[0].ItemID)
	assert.Greater(t, res.Candidates[0].Score, 0.86)
}

func TestResolveAmbiguousSeriesQuery(t *testing.T) {
	r := New(testCatalog())

	res := r.Resolve("bibi und tina")
	require.Equal(t, StatusNeedsConfirmation, res.Status)
	require.GreaterOrEqual(t, len(res.Candidates), 2)

	ids := make(map[string]struct{})
	for _, c := range res.Candidates {
		ids[c.ItemID] = struct{}{}
	}
	assert.Contains(t, ids, "tn_002")
	assert.Contains(t, ids, "tn_003")
}

func TestResolveUnrelatedQueryNotFound(t *testing.T) {
	r := New(testCatalog())

	res := r.Resolve("quantum vacuum cleaner manual")
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestResolveNLimitsCandidates(t *testing.T) {
	r := New(testCatalog())

	res := r.ResolveN("bibi und tina", 1)
	assert.LessOrEqual(t, len(res.Candidates), 1)
}
